// Package artifacts publishes rendered export bytes and returns retrievable
// URLs. The local backend writes under the configured artifact directory;
// the S3 backend uploads through the AWS SDK uploader.
package artifacts
