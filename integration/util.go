//go:build integration
// +build integration

package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"

	"github.com/guildrec/go-vodutils/envconf"
	"github.com/guildrec/go-vodutils/transfer/gateway"
)

var logger = log.NewLogger()

// testConfig points the suite at a live gateway deployment. ObjectBaseURL is
// the public read endpoint of the bucket, used as the download source.
type testConfig struct {
	APIBaseURL    string         `env:"VODUTILS_API_URL,required"`
	AccessToken   envconf.Secret `env:"VODUTILS_ACCESS_TOKEN,required"`
	Bucket        string         `env:"VODUTILS_BUCKET,required"`
	ObjectBaseURL string         `env:"VODUTILS_OBJECT_URL"`
}

func loadConfig(t *testing.T) testConfig {
	t.Helper()
	if os.Getenv("VODUTILS_API_URL") == "" {
		t.Skip("VODUTILS_API_URL is not set, skipping integration test")
	}

	var conf testConfig
	if err := envconf.NewParser(env.NewRepository()).Parse(&conf); err != nil {
		t.Fatal(err)
	}
	return conf
}

func newGatewayClient(t *testing.T) *gateway.Client {
	conf := loadConfig(t)
	return gateway.NewClient(retryhttp.NewClient(logger), conf.APIBaseURL, conf.Bucket, string(conf.AccessToken), logger)
}

func checksumOf(bytes []byte) string {
	hash := sha256.New()
	hash.Write(bytes)
	return hex.EncodeToString(hash.Sum(nil))
}

// writeTestRecording creates a throwaway mp4 file of the given size with
// pseudo-random content, so repeated runs never upload identical bytes.
func writeTestRecording(t *testing.T, name string, size int) string {
	t.Helper()
	content := make([]byte, size)
	rand.Read(content)

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
