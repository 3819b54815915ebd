package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/httputil"
)

// wikipediaAPIBase is formatted with the language code; tests replace it.
var wikipediaAPIBase = "https://%s.wikipedia.org/w/api.php"

// maxExtractChars bounds each page summary.
const maxExtractChars = 4000

// WikipediaSearcher runs a MediaWiki full-text search and returns the intro
// extract of the top pages as text.
type WikipediaSearcher struct {
	Client     *http.Client
	Language   string
	MaxResults int
	UserAgent  string
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			PageID  int    `json:"pageid"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	title   string
	pageID  int
	snippet string
}

func (w *WikipediaSearcher) Search(ctx context.Context, query string) (model.Content, error) {
	if strings.TrimSpace(query) == "" {
		return model.Content{}, fmt.Errorf("empty wikipedia query")
	}
	limit := w.MaxResults
	if limit <= 0 {
		limit = 2
	}

	pages, err := w.search(ctx, query, limit)
	if err != nil {
		return model.Content{}, err
	}
	if len(pages) == 0 {
		return model.TextContent("No good Wikipedia Search Result was found"), nil
	}

	extracts, err := w.extracts(ctx, pages)
	if err != nil {
		return model.Content{}, err
	}

	blocks := make([]string, 0, len(pages))
	for _, p := range pages {
		summary := strings.TrimSpace(extracts[p.pageID])
		if summary == "" {
			summary = htmlText(p.snippet)
		}
		summary = truncateUTF8(summary, maxExtractChars)
		blocks = append(blocks, fmt.Sprintf("Page: %s\nSummary: %s", p.title, summary))
	}
	return model.TextContent(strings.Join(blocks, "\n\n")), nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (w *WikipediaSearcher) endpoint() string {
	lang := w.Language
	if lang == "" {
		lang = "en"
	}
	if strings.Contains(wikipediaAPIBase, "%s") {
		return fmt.Sprintf(wikipediaAPIBase, lang)
	}
	return wikipediaAPIBase
}

func (w *WikipediaSearcher) search(ctx context.Context, query string, limit int) ([]wikiPage, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")

	var out wikiSearchResponse
	if err := w.getJSON(ctx, params, &out); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}
	pages := make([]wikiPage, 0, len(out.Query.Search))
	for _, s := range out.Query.Search {
		pages = append(pages, wikiPage{title: s.Title, pageID: s.PageID, snippet: s.Snippet})
	}
	return pages, nil
}

func (w *WikipediaSearcher) extracts(ctx context.Context, pages []wikiPage) (map[int]string, error) {
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, strconv.Itoa(p.pageID))
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("pageids", strings.Join(ids, "|"))
	params.Set("format", "json")

	var out wikiExtractResponse
	if err := w.getJSON(ctx, params, &out); err != nil {
		return nil, fmt.Errorf("wikipedia extracts: %w", err)
	}
	res := make(map[int]string, len(out.Query.Pages))
	for id, page := range out.Query.Pages {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		res[n] = page.Extract
	}
	return res, nil
}

func (w *WikipediaSearcher) getJSON(ctx context.Context, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if w.UserAgent != "" {
		req.Header.Set("User-Agent", w.UserAgent)
	}
	resp, err := httputil.DoWithRetry(ctx, w.Client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// htmlText strips the search-match markup MediaWiki puts in snippets.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
