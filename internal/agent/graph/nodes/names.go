package nodes

// Node names used for logging, callbacks and metrics.
const (
	NodeDecompose    = "decompose"
	NodeWeb          = "web"
	NodeAcademic     = "academic"
	NodeEncyclopedia = "encyclopedia"
	NodeMerge        = "merge"
	NodeRerank       = "rerank"
	NodeSynthesize   = "synthesize"
	NodeReview       = "review"
)
