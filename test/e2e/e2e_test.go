// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"nginx-config-generator/internal/common/config"
	"nginx-config-generator/internal/common/logger"
	generateconfig "nginx-config-generator/internal/pipeline/generate-config"
	"nginx-config-generator/internal/server"
)

var (
	service *httptest.Server
	agent   *fakeAgent
)

// fakeAgent stands in for the NGINX agent receiving http deliveries.
type fakeAgent struct {
	mu       sync.Mutex
	received [][]byte
	srv      *httptest.Server
}

func newFakeAgent() *fakeAgent {
	a := &fakeAgent{}
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		a.mu.Lock()
		a.received = append(a.received, body)
		a.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"applied":true}`))
	}))
	return a
}

func (a *fakeAgent) last() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.received) == 0 {
		return nil
	}
	return a.received[len(a.received)-1]
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	zapLog, _ := zap.NewDevelopment()
	log := logger.NewZapAdapter(zapLog)

	cfg := config.Default()
	cfg.Delivery.Timeout = 2000

	pipeline, err := generateconfig.NewHandler(generateconfig.HandlerOptions{
		AppConfig: cfg,
		Logger:    log,
	})
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to build pipeline: %v", err))
	}

	service = httptest.NewServer(server.NewRouter(server.Options{Pipeline: pipeline, Logger: log}))
	agent = newFakeAgent()

	code := m.Run()

	agent.srv.Close()
	service.Close()
	os.Exit(code)
}

func post(t *testing.T, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(service.URL+"/v0/config", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func request(output string) string {
	return fmt.Sprintf(`{"output":%s,"declaration":{
		"servers":[{"names":["example.com"],"listen":{"address":"0.0.0.0:80"},
			"locations":[{"uri":"/","upstream":"backend"}]}],
		"upstreams":[{"name":"backend","origin":[{"server":"10.0.0.1:8080"}]}]}}`, output)
}

func TestFullE2E(t *testing.T) {
	t.Log("🚀 Starting E2E test against the HTTP front end...")

	// 1. Service is up
	resp, err := http.Get(service.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Log("✅ Service healthy")

	// 2. Plaintext
	resp, plain := post(t, request(`{"type":"plaintext"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(plain))
	for _, want := range []string{"listen 0.0.0.0:80;", "location / {", "upstream backend {", "server 10.0.0.1:8080;"} {
		assert.Contains(t, string(plain), want)
	}
	t.Log("✅ plaintext channel")

	// 3. JSON round trip
	resp, encoded := post(t, request(`{"type":"Json"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, plain, decodeEnvelope(t, encoded))
	t.Log("✅ json channel")

	// 4. ConfigMap
	resp, manifest := post(t, request(`{"type":"configmap","configmap":{"name":"n1","filename":"nginx.conf","namespace":"edge"}}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(manifest))
	var cm struct {
		Metadata struct {
			Name      string `yaml:"name"`
			Namespace string `yaml:"namespace"`
		} `yaml:"metadata"`
		Data map[string]string `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(manifest, &cm))
	assert.Equal(t, "n1", cm.Metadata.Name)
	assert.Equal(t, "edge", cm.Metadata.Namespace)
	assert.Equal(t, string(plain), cm.Data["nginx.conf"])
	t.Log("✅ configmap channel")

	// 5. HTTP delivery
	resp, delivered := post(t, request(fmt.Sprintf(`{"type":"http","http":{"url":%q}}`, agent.srv.URL)))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"applied":true}`, string(delivered))
	assert.Equal(t, plain, decodeEnvelope(t, agent.last()))
	t.Log("✅ http channel")

	t.Log("✅ ALL CHANNELS PASSED")
}

func TestE2E_Failures(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	unreachable := closed.URL
	closed.Close()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown channel", request(`{"type":"xml"}`), http.StatusUnprocessableEntity, "UNKNOWN_CHANNEL"},
		{"extra property", `{"output":{"type":"json"},"declaration":{},"x":1}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"malformed body", `{`, http.StatusBadRequest, "INVALID_REQUEST_BODY"},
		{"delivery failure", request(fmt.Sprintf(`{"type":"http","http":{"url":%q}}`, unreachable)), http.StatusBadGateway, "DELIVERY_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, resp.Header.Get("X-Error-Code"))
		})
	}
}

func TestE2E_ConcurrentRequestsAreIndependent(t *testing.T) {
	_, want := post(t, request(`{"type":"plaintext"}`))

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Post(service.URL+"/v0/config", "application/json",
				bytes.NewReader([]byte(request(`{"type":"plaintext"}`))))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			results[i], _ = io.ReadAll(resp.Body)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, want, got, "request %d", i)
	}
}

func decodeEnvelope(t *testing.T, body []byte) []byte {
	t.Helper()
	var env struct {
		NginxConfig string `json:"nginx_config"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	out, err := base64.StdEncoding.DecodeString(env.NginxConfig)
	require.NoError(t, err)
	return out
}
