package filestore

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds the settings needed to reach a storage backend.
type Config struct {
	Provider Provider

	// Endpoint is host:port, e.g. "localhost:9000".
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region is left empty for MinIO.
	Region string

	// DefaultBucket is used when a caller passes an empty bucket.
	DefaultBucket string
}

// DefaultConfig returns a plain-HTTP MinIO config.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// Bucket returns bucket, or DefaultBucket when bucket is empty.
func (c *Config) Bucket(bucket string) string {
	if bucket == "" {
		return c.DefaultBucket
	}
	return bucket
}
