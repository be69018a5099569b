package remote

import "errors"

// S3Config describes the S3-compatible object store the client talks to.
type S3Config struct {
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Region    string `json:"region" mapstructure:"region"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, R2, etc). Path-style addressing is used when set.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("remote: bucket is required")
	}
	if c.Region == "" && c.Endpoint == "" {
		return errors.New("remote: region or endpoint is required")
	}
	return nil
}
