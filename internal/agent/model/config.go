package model

// ================ Config ================
type LLMConfig struct {
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`
}

type DecomposeModelConfig struct {
	Model       string  `envconfig:"DECOMPOSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"DECOMPOSE_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"DECOMPOSE_TEMPERATURE" default:"0.1"`
}

type SynthModelConfig struct {
	Model       string  `envconfig:"SYNTH_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SYNTH_MAX_TOKENS" default:"4096"`
	Temperature float32 `envconfig:"SYNTH_TEMPERATURE" default:"0.4"`
}

type SearchConfig struct {
	TavilyAPIKey        string `envconfig:"TAVILY_API_KEY"`
	TavilyMaxResults    int    `envconfig:"TAVILY_MAX_RESULTS" default:"5"`
	ArxivMaxResults     int    `envconfig:"ARXIV_MAX_RESULTS" default:"3"`
	WikipediaMaxResults int    `envconfig:"WIKIPEDIA_MAX_RESULTS" default:"2"`
	WikipediaLanguage   string `envconfig:"WIKIPEDIA_LANGUAGE" default:"en"`
	Timeout             string `envconfig:"SEARCH_TIMEOUT" default:"20s"`
	Concurrency         int    `envconfig:"SEARCH_CONCURRENCY" default:"4"`
	UserAgent           string `envconfig:"USER_AGENT" default:"blogflow/1.0"`
}

type RankingConfig struct {
	EmbeddingModel string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	CohereAPIKey   string  `envconfig:"COHERE_API_KEY"`
	RerankModel    string  `envconfig:"RERANK_MODEL" default:"rerank-english-v3.0"`
	RerankTopN     int     `envconfig:"RERANK_TOP_N" default:"10"`
	SemanticTopK   int     `envconfig:"SEMANTIC_TOP_K" default:"15"`
	KeywordTopK    int     `envconfig:"KEYWORD_TOP_K" default:"15"`
	SemanticWeight float64 `envconfig:"SEMANTIC_WEIGHT" default:"0.7"`
	KeywordWeight  float64 `envconfig:"KEYWORD_WEIGHT" default:"0.3"`
}

type ReviewConfig struct {
	// 0 means unbounded
	MaxRevisions int `envconfig:"REVIEW_MAX_REVISIONS" default:"0"`
}

type StoreConfig struct {
	Kind string `envconfig:"STATE_STORE" default:"redis"`
	TTL  string `envconfig:"STATE_TTL" default:"168h"`
}

type ServerConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
}
