package config

// ApplyDefaults sets default values for any zero values in cfg. Load calls
// it before unmarshalling, so file values overwrite defaults rather than
// the other way around.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "/usr/local/var/chalkbot/data/embeddings"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}
	}
	if cfg.Provider.Vendor == "" {
		cfg.Provider.Vendor = "gemini"
	}
	if cfg.Answer.TopK == 0 {
		cfg.Answer.TopK = 3
	}
	if cfg.Answer.MinSimilarity == 0 {
		cfg.Answer.MinSimilarity = 0.3
	}
	if cfg.Answer.ChunkSize == 0 {
		cfg.Answer.ChunkSize = 500
	}
	if cfg.Answer.MinAnswerLength == 0 {
		cfg.Answer.MinAnswerLength = 50
	}
}
