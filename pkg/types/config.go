package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "review-insights/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// AppID is the Steam application whose reviews are fetched.
	AppID int `json:"appid" yaml:"appid"`

	// MaxReviews stops paging once this many reviews are written (default 80000).
	MaxReviews int `json:"max_reviews" yaml:"max_reviews"`

	// Language is the Steam language filter: "english" or "all".
	Language string `json:"language" yaml:"language"`

	// FilterOfftopic set to true filters review-bomb periods.
	FilterOfftopic bool `json:"filter_offtopic" yaml:"filter_offtopic"`

	// Filter is the feed order: "recent" or "updated".
	Filter string `json:"filter" yaml:"filter"`

	// PageDelay is the pause between consecutive pages (default 500ms).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// MaxRetries is the number of attempts per page (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// OutDir receives reviews_<appid>.jsonl and meta_<appid>.json.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Overwrite allows replacing an existing reviews file.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`
}

// SentimentConfig holds settings for the score stage.
type SentimentConfig struct {
	// InputPath is the fetch JSONL file.
	InputPath string `json:"input_path" yaml:"input_path"`

	// AnalysisDir receives sentiment_results.csv and summary.txt.
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`
}

// TopicConfig holds settings for the topics stage.
type TopicConfig struct {
	// AnalysisDir holds sentiment_results.csv and receives review_insights.txt.
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// Clusters is the number of KMeans clusters per polarity (default 8).
	Clusters int `json:"clusters" yaml:"clusters"`

	// TopTerms is the number of terms reported per cluster (default 10).
	TopTerms int `json:"top_terms" yaml:"top_terms"`

	// MaxFeatures caps the TF-IDF vocabulary (default 6000).
	MaxFeatures int `json:"max_features" yaml:"max_features"`

	// NInit is the number of KMeans restarts (default 10).
	NInit int `json:"n_init" yaml:"n_init"`

	// Seed makes KMeans seeding reproducible (default 42).
	Seed int64 `json:"seed" yaml:"seed"`

	// Title heads the insight report.
	Title string `json:"title" yaml:"title"`
}

// AIConfig holds shared settings for stages that call a language model.
type AIConfig struct {
	// Backend selects the model provider: ollama, ollama-cli, claude, or gemini.
	Backend string `json:"backend" yaml:"backend"`

	// Model is the model identifier (e.g. "analyst" for a local Ollama model).
	Model string `json:"model" yaml:"model"`

	// Endpoint is the base URL of a local inference server (ollama backend).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// APIKey is the authentication key for hosted backends.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CallTimeout bounds a single model call (default 90s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
}

// SummarizeConfig holds settings for the summarize stage.
type SummarizeConfig struct {
	AIConfig `yaml:",inline"`

	// AnalysisDir holds sentiment_results.csv and receives review_summaries.jsonl.
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// Workers is the number of concurrent model calls (default 6).
	Workers int `json:"workers" yaml:"workers"`

	// Limit summarizes at most this many pending reviews (0 = all).
	Limit int `json:"limit" yaml:"limit"`
}

// AggregateConfig holds settings for the aggregate stage.
type AggregateConfig struct {
	// SummariesPath is the summarize JSONL file.
	SummariesPath string `json:"summaries_path" yaml:"summaries_path"`

	// AnalysisDir receives insights_aggregate.csv and task_examples.csv.
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// MinConfidence drops tasks below this confidence (default 0.6).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// MaxExamples is the number of example tasks kept per category (default 3).
	MaxExamples int `json:"max_examples" yaml:"max_examples"`

	// CategoriesFile optionally replaces the built-in category table.
	CategoriesFile string `json:"categories_file,omitempty" yaml:"categories_file,omitempty"`
}

// StoreConfig holds settings for the drill-down store.
type StoreConfig struct {
	// AnalysisDir holds the stage outputs and the index/ directory.
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ReportConfig holds settings for the report stage.
type ReportConfig struct {
	// AnalysisDir holds the stage outputs and receives dev_report.md.
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// Title heads the developer report.
	Title string `json:"title" yaml:"title"`

	// TopN is the number of priorities listed (default 5).
	TopN int `json:"top_n" yaml:"top_n"`
}
