package credentials

import (
	"context"
)

// Slot names used by every backend. They match the keys the storefront web
// client keeps in browser local storage so exported data stays compatible.
const (
	AccessSlot  = "accessToken"
	RefreshSlot = "refreshToken"
)

// Pair holds an access credential and a refresh credential.
// Either field may be empty.
type Pair struct {
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// IsEmpty reports whether neither credential is present
func (p Pair) IsEmpty() bool {
	return p.Access == "" && p.Refresh == ""
}

// Store defines the interface for credential persistence
type Store interface {
	// Get returns the stored pair. Missing slots are returned as empty strings.
	Get(ctx context.Context) Pair

	// Set writes the non-empty fields of pair and leaves the other slot untouched
	Set(ctx context.Context, pair Pair) error

	// Clear removes both slots
	Clear(ctx context.Context) error

	// Close cleans up any resources
	Close() error
}

// StoreType represents the type of credential backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeS3     StoreType = "s3"
)

// Config holds configuration for credential backends
type Config struct {
	Type StoreType `json:"type" mapstructure:"type" validate:"omitempty,oneof=memory file redis s3"`

	// File backend
	FilePath string `json:"file_path,omitempty" mapstructure:"file_path"`
	Encrypt  bool   `json:"encrypt,omitempty" mapstructure:"encrypt"`

	// Redis backend
	RedisAddr     string `json:"redis_addr,omitempty" mapstructure:"redis_addr" validate:"required_if=Type redis"`
	RedisPassword string `json:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db,omitempty" mapstructure:"redis_db"`

	// S3 backend
	S3Bucket    string `json:"s3_bucket,omitempty" mapstructure:"s3_bucket" validate:"required_if=Type s3"`
	S3Region    string `json:"s3_region,omitempty" mapstructure:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint,omitempty" mapstructure:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key,omitempty" mapstructure:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key,omitempty" mapstructure:"s3_secret_key"`

	// Prefix namespaces the redis keys and the s3 object key
	Prefix string `json:"prefix,omitempty" mapstructure:"prefix"`
}

// merge applies the non-empty fields of update onto current
func merge(current, update Pair) Pair {
	if update.Access != "" {
		current.Access = update.Access
	}
	if update.Refresh != "" {
		current.Refresh = update.Refresh
	}
	return current
}
