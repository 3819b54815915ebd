package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the component observers (prompt, chat model)
// and the node timing handler.
func NewAllCallbacks() []einocb.Handler {
	components := callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()

	return []einocb.Handler{components, NewNodeCallbacks()}
}
