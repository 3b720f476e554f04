package credentials

import (
	"fmt"
)

// NewStore creates a credential store based on the configuration
func NewStore(config *Config) (Store, error) {
	switch config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeFile, "":
		if config.FilePath == "" {
			config.FilePath = DefaultFilePath()
		}
		return NewFileStore(config.FilePath, config.Encrypt)

	case StoreTypeRedis:
		return NewRedisStore(config.RedisAddr, config.RedisPassword, config.RedisDB, config.Prefix)

	case StoreTypeS3:
		return NewS3Store(config.S3Bucket, config.S3Region, config.Prefix, config.S3Endpoint, config.S3AccessKey, config.S3SecretKey)

	default:
		return nil, fmt.Errorf("unknown credential store type: %s", config.Type)
	}
}
