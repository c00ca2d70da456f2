package storage

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/cloudfront/sign"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// signedURLExpiry bounds how long a CDN link handed to a browser stays valid.
const signedURLExpiry = 15 * time.Minute

// StaticThumbnailPrefix marks thumbnail keys that point at bundled frontend
// assets rather than bucket objects. Those are served as-is, never signed.
const StaticThumbnailPrefix = "/thumbnails/"

// CDNSigner wraps raw object keys into time-limited CloudFront URLs and
// invalidates cached paths after deletes.
type CDNSigner struct {
	domain         string
	signer         *sign.URLSigner
	client         *cloudfront.Client
	distributionID string
}

// CDNOptions carries the distribution settings for NewCDNSigner.
type CDNOptions struct {
	Domain         string // Distribution domain, e.g. "d111.cloudfront.net".
	KeyPairID      string
	PrivateKeyPEM  []byte
	DistributionID string
}

// NewCDNSigner constructs a CDNSigner. client may be nil when invalidation is
// not configured; SignURL still works.
func NewCDNSigner(opts CDNOptions, client *cloudfront.Client) (*CDNSigner, error) {
	key, errKey := parseRSAPrivateKey(opts.PrivateKeyPEM)
	if errKey != nil {
		return nil, fmt.Errorf("storage: cloudfront private key: %w", errKey)
	}
	domain := strings.TrimSuffix(strings.TrimSpace(opts.Domain), "/")
	if domain == "" {
		return nil, fmt.Errorf("storage: missing cloudfront domain")
	}
	return &CDNSigner{
		domain:         domain,
		signer:         sign.NewURLSigner(opts.KeyPairID, key),
		client:         client,
		distributionID: strings.TrimSpace(opts.DistributionID),
	}, nil
}

// SignKey wraps a raw object key into a signed CDN URL valid for 15 minutes.
// Keys under StaticThumbnailPrefix come back unchanged.
func (c *CDNSigner) SignKey(key string) (string, error) {
	if strings.HasPrefix(key, StaticThumbnailPrefix) {
		return key, nil
	}
	rawURL := fmt.Sprintf("https://%s/%s", c.domain, strings.TrimPrefix(key, "/"))
	signed, errSign := c.signer.Sign(rawURL, time.Now().Add(signedURLExpiry))
	if errSign != nil {
		return "", fmt.Errorf("storage: sign %q: %w", key, errSign)
	}
	return signed, nil
}

// Invalidate drops the given keys from the CDN cache. Failures are logged and
// swallowed: the cache entry expires on its own and the delete already
// succeeded against the bucket.
func (c *CDNSigner) Invalidate(ctx context.Context, keys []string) {
	if c == nil || c.client == nil || c.distributionID == "" || len(keys) == 0 {
		return
	}
	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || strings.HasPrefix(key, StaticThumbnailPrefix) {
			continue
		}
		if !strings.HasPrefix(key, "/") {
			key = "/" + key
		}
		paths = append(paths, key)
	}
	if len(paths) == 0 {
		return
	}

	_, errInvalidate := c.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(c.distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(uuid.NewString()),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if errInvalidate != nil {
		log.WithError(errInvalidate).WithField("paths", paths).Warn("cloudfront invalidation failed")
	}
}

// NewCloudFrontClient constructs the invalidation client from static
// credentials.
func NewCloudFrontClient(ctx context.Context, region, accessKey, secretKey string) (*cloudfront.Client, error) {
	awsCfg, errLoad := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if errLoad != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", errLoad)
	}
	return cloudfront.NewFromConfig(awsCfg), nil
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, errPKCS1 := x509.ParsePKCS1PrivateKey(block.Bytes); errPKCS1 == nil {
		return key, nil
	}
	parsed, errPKCS8 := x509.ParsePKCS8PrivateKey(block.Bytes)
	if errPKCS8 != nil {
		return nil, errPKCS8
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}
