package nodes

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// stubGenerator replays canned replies and records the prompts it saw.
type stubGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	usage   *schema.TokenUsage
	seen    [][]*schema.Message
}

func (s *stubGenerator) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, in)
	if s.err != nil {
		return nil, s.err
	}
	reply := ""
	if len(s.replies) > 0 {
		reply = s.replies[0]
		if len(s.replies) > 1 {
			s.replies = s.replies[1:]
		}
	}
	msg := schema.AssistantMessage(reply, nil)
	if s.usage != nil {
		msg.ResponseMeta = &schema.ResponseMeta{Usage: s.usage}
	}
	return msg, nil
}
