package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

// gcmMagic prefixes archives written with a password.
const gcmMagic = "GCM3NCR0"

const pbkdf2Rounds = 100000

// S3Options configures an S3 archive sink.
type S3Options struct {
	Bucket string
	// Key is used verbatim when it does not end in "/"; otherwise it is a
	// prefix and the artifact name is appended.
	Key             string
	Region          string
	Endpoint        string // optional, for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	// Password enables client-side AES-GCM encryption of the archive.
	Password string
}

// S3Sink uploads downloaded artifacts to S3
type S3Sink struct {
	uploader *manager.Uploader
	opts     S3Options
}

// NewS3Sink creates a new S3 sink
func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket is required")
	}
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{uploader: manager.NewUploader(cli), opts: opts}, nil
}

// ObjectKey returns the key an artifact called name is stored under.
func (s *S3Sink) ObjectKey(name string) string {
	return objectKey(s.opts.Key, name)
}

func objectKey(key, name string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return strings.TrimPrefix(key+SafeName(name), "/")
	}
	return strings.TrimPrefix(key, "/")
}

// Put uploads r, encrypting it first when a password is configured.
func (s *S3Sink) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	key := s.ObjectKey(name)
	meta := map[string]string{"name": SafeName(name)}
	var body io.Reader = r
	if s.opts.Password != "" {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read artifact: %w", err)
		}
		enc, err := EncryptGCM(data, s.opts.Password)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt data: %w", err)
		}
		body = bytes.NewReader(enc)
		meta["encrypted"] = "true"
		meta["encryption-format"] = gcmMagic
	}
	contentType := "application/pdf"
	if path.Ext(strings.ToLower(key)) != ".pdf" {
		contentType = "application/octet-stream"
	}
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("bucket", s.opts.Bucket).Str("key", key).Bool("encrypted", s.opts.Password != "").Str("location", out.Location).Msg("archived result to S3")
	return fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key), nil
}

// ParseS3URL splits s3://bucket/key. ok is false for anything else.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(raw, "s3://") {
		return "", "", false
	}
	p := strings.TrimPrefix(raw, "s3://")
	if i := strings.Index(p, "/"); i >= 0 {
		bucket, key = p[:i], p[i+1:]
	} else {
		bucket = p
	}
	if bucket == "" {
		return "", "", false
	}
	return bucket, key, true
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Rounds, 32, sha256.New)
}

// EncryptGCM seals data with a password-derived AES-256-GCM key.
// Format: magic(8) + salt(16) + nonce(12) + ciphertext + tag(16)
func EncryptGCM(data []byte, password string) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(gcmMagic)+len(salt)+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, gcmMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// DecryptGCM opens data produced by EncryptGCM.
func DecryptGCM(encryptedData []byte, password string) ([]byte, error) {
	if len(encryptedData) < 8+16+12+16 {
		return nil, fmt.Errorf("GCM data too short: %d bytes", len(encryptedData))
	}
	if string(encryptedData[:8]) != gcmMagic {
		return nil, fmt.Errorf("unknown encryption format %q", encryptedData[:8])
	}
	salt := encryptedData[8:24]
	nonce := encryptedData[24:36]
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, encryptedData[36:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}
