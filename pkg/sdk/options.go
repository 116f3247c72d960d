package rankd

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	keyPrefix string

	textEmbedder  Embedder
	imageEmbedder ImageSpaceEmbedder
	decomposer    QueryDecomposer

	textDimensions  int
	imageDimensions int
	hnswM           int
	hnswEFConstruct int

	topN        int
	callTimeout time.Duration
	boostScheme string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster configures the client with multiple seed addresses.
func WithRedisCluster(addrs []string, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
		c.username = username
		c.password = password
	})
}

// WithDB selects a logical Redis database. Default: 0.
func WithDB(db int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = db
	})
}

// WithKeyPrefix overrides the key namespace for all stored data.
// Default: "rankd:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedders sets the text-space and image-space embedding providers.
// Either may be nil; the corresponding vector strategies then degrade to
// empty retrievals and lexical search remains fully functional.
func WithEmbedders(text Embedder, image ImageSpaceEmbedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.textEmbedder = text
		c.imageEmbedder = image
	})
}

// WithDecomposer sets the LLM subquery decomposer. Optional; without it
// every query uses the deterministic template plan.
func WithDecomposer(d QueryDecomposer) Option {
	return optionFunc(func(c *clientConfig) {
		c.decomposer = d
	})
}

// WithVectorDimensions sets the text-space and image-space vector
// dimensions used when creating the search index.
// Defaults: 4096 (BAAI/bge-en-icl) and 768 (CLIP ViT-L/14).
func WithVectorDimensions(textDim, imageDim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.textDimensions = textDim
		c.imageDimensions = imageDim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithTopN sets how many hits each retrieval strategy fetches per
// subquery before fusion. Default: 20.
func WithTopN(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topN = n
	})
}

// WithCallTimeout bounds each external call (retrieval, embedding).
// Default: 3s.
func WithCallTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.callTimeout = d
	})
}

// WithBoostScheme selects the tag boost scheme, "tiered" or "incremental".
// Default: "tiered".
func WithBoostScheme(scheme string) Option {
	return optionFunc(func(c *clientConfig) {
		c.boostScheme = scheme
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
