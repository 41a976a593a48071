package renderconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/internal/models"
)

const minimalConfig = `events {
    worker_connections 1024;
}

http {

    upstream backend {
        zone backend 64k;
        server 10.0.0.1:8080;
    }

    server {
        listen 0.0.0.0:80;
        server_name example.com;

        location / {
            proxy_pass http://backend;
        }
    }
}
`

func decodeDeclaration(t *testing.T, raw string) *models.Declaration {
	t.Helper()
	var d models.Declaration
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return &d
}

func minimalDeclaration(t *testing.T) *models.Declaration {
	return decodeDeclaration(t, `{
		"servers": [{
			"names": ["example.com"],
			"listen": {"address": "0.0.0.0:80"},
			"locations": [{"uri": "/", "upstream": "http://backend"}]
		}],
		"upstreams": [{"name": "backend", "origin": [{"server": "10.0.0.1:8080"}]}]
	}`)
}

func embeddedEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEmbeddedEngine()
	require.NoError(t, err)
	return e
}

func TestEmbeddedEngine_Templates(t *testing.T) {
	e := embeddedEngine(t)

	assert.Equal(t, []string{"configmap.yaml", "nginx.conf"}, e.Templates())
	assert.True(t, e.Has("nginx.conf"))
	assert.False(t, e.Has("apache.conf"))
}

func TestEngine_RenderMinimal(t *testing.T) {
	e := embeddedEngine(t)

	out, err := e.Render("nginx.conf", minimalDeclaration(t))
	require.NoError(t, err)
	assert.Equal(t, minimalConfig, out)
}

func TestEngine_RenderIsDeterministic(t *testing.T) {
	e := embeddedEngine(t)
	d := minimalDeclaration(t)

	first, err := e.Render("nginx.conf", d)
	require.NoError(t, err)
	second, err := e.Render("nginx.conf", d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngine_RenderFullDeclaration(t *testing.T) {
	e := embeddedEngine(t)
	d := decodeDeclaration(t, `{
		"servers": [{
			"names": ["www.example.com", "example.com"],
			"listen": {
				"address": "0.0.0.0:443",
				"http2": true,
				"tls": {
					"certificate": "/etc/ssl/cert.pem",
					"key": "/etc/ssl/key.pem",
					"protocols": ["TLSv1.2", "TLSv1.3"]
				}
			},
			"log": {"access": "/var/log/nginx/access.log", "error": "/var/log/nginx/error.log"},
			"locations": [
				{
					"uri": "/",
					"upstream": "https://backend",
					"caching": "static",
					"rate_limit": {"profile": "perip", "burst": 20, "delay": 10},
					"health_check": true,
					"snippet": "            add_header X-Test 1;"
				},
				{"uri": "^/images/", "urimatch": "iregex", "upstream": "backend"},
				{"uri": "/exact", "urimatch": "exact", "upstream": "backend"}
			],
			"snippet": "        client_max_body_size 10m;"
		}],
		"upstreams": [{
			"name": "backend",
			"origin": [
				{"server": "10.0.0.1:8080"},
				{"server": "10.0.0.2:8080", "weight": 5, "max_fails": 3, "fail_timeout": "10s", "backup": true}
			],
			"sticky": {"cookie": "srv_id", "expires": "1h", "path": "/"}
		}],
		"caching": [{
			"name": "static",
			"key": "$scheme$host$request_uri",
			"valid": [{"codes": [200, 302], "ttl": "10m"}, {"codes": [404], "ttl": 30}]
		}],
		"rate_limit": [{"name": "perip", "key": "$binary_remote_addr", "size": "10m", "rate": "1r/s"}],
		"nginx_plus_api": {"listen": "127.0.0.1:8080", "allow_acl": "10.0.0.0/8"},
		"layer4": {
			"servers": [{"listen": {"address": "53", "protocol": "udp"}, "upstream": "dns"}],
			"upstreams": [{"name": "dns", "origin": [{"server": "10.0.0.53:53"}]}]
		}
	}`)

	out, err := e.Render("nginx.conf", d)
	require.NoError(t, err)

	for _, want := range []string{
		"    limit_req_zone $binary_remote_addr zone=perip:10m rate=1r/s;\n",
		"    proxy_cache_path /var/cache/nginx/static keys_zone=static:10m;\n",
		"        server 10.0.0.1:8080;\n",
		"        server 10.0.0.2:8080 weight=5 max_fails=3 fail_timeout=10s backup;\n",
		"        sticky cookie srv_id expires=1h path=/;\n",
		"        listen 0.0.0.0:443 ssl;\n",
		"        http2 on;\n",
		"        server_name www.example.com example.com;\n",
		"        ssl_certificate /etc/ssl/cert.pem;\n",
		"        ssl_certificate_key /etc/ssl/key.pem;\n",
		"        ssl_protocols TLSv1.2 TLSv1.3;\n",
		"        access_log /var/log/nginx/access.log;\n",
		"        error_log /var/log/nginx/error.log;\n",
		"        location / {\n            proxy_pass https://backend;\n",
		"            proxy_cache static;\n",
		"            proxy_cache_key $scheme$host$request_uri;\n",
		"            proxy_cache_valid 200 302 10m;\n",
		"            proxy_cache_valid 404 30;\n",
		"            limit_req zone=perip burst=20 delay=10;\n",
		"            limit_req_status 429;\n",
		"            health_check;\n",
		"            add_header X-Test 1;\n",
		"        location ~* ^/images/ {\n            proxy_pass http://backend;\n",
		"        location = /exact {\n",
		"        client_max_body_size 10m;\n",
		"            api write=on;\n",
		"            allow 10.0.0.0/8;\n",
		"stream {\n",
		"        listen 53 udp;\n",
		"        proxy_pass dns;\n",
		"        server 10.0.0.53:53;\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestEngine_EscapesDeclarationValues(t *testing.T) {
	e := embeddedEngine(t)
	d := minimalDeclaration(t)
	d.Servers[0].Names = []string{"example.com; include /etc/shadow"}
	d.Servers[0].Locations[0].URI = `/a {`

	out, err := e.Render("nginx.conf", d)
	require.NoError(t, err)

	assert.Contains(t, out, "server_name \"example.com; include /etc/shadow\";\n")
	assert.Contains(t, out, "location \"/a {\" {\n")
	assert.NotContains(t, out, "include /etc/shadow;")
}

func TestEngine_ServerWithoutListen(t *testing.T) {
	e := embeddedEngine(t)
	d := minimalDeclaration(t)
	d.Servers[0].Listen = nil

	_, err := e.Render("nginx.conf", d)
	require.Error(t, err)

	se := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeRenderFailed, se.Code)
	assert.Equal(t, "nginx.conf", se.Metadata["template"])
	assert.Equal(t, ".Listen.Address", se.Metadata["reference"])
}

func TestEngine_UnknownTemplate(t *testing.T) {
	e := embeddedEngine(t)

	_, err := e.Render("apache.conf", minimalDeclaration(t))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.AsStandardError(err).Code)
}

func TestLoadEngine_RootDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.json"), []byte(`{
		"version": "1",
		"templates": [{"id": "nginx.conf", "file": "custom.tmpl", "format": "nginx"}]
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.tmpl"),
		[]byte("# servers: {{len .Servers}}\n"), 0o644))

	e, err := LoadEngine(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx.conf"}, e.Templates())

	out, err := e.Render("nginx.conf", minimalDeclaration(t))
	require.NoError(t, err)
	assert.Equal(t, "# servers: 1\n", out)

	_, err = e.Render("configmap.yaml", nil)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.AsStandardError(err).Code)
}

func TestLoadEngine_Errors(t *testing.T) {
	t.Run("missing registry", func(t *testing.T) {
		_, err := LoadEngine(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("template does not parse", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.json"),
			[]byte(`{"templates": [{"id": "x", "file": "x.tmpl", "format": "nginx"}]}`), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "x.tmpl"), []byte("{{if}}"), 0o644))

		_, err := LoadEngine(dir)
		assert.ErrorContains(t, err, "parse template x")
	})

	t.Run("empty root dir uses built-in templates", func(t *testing.T) {
		e, err := LoadEngine("")
		require.NoError(t, err)
		assert.True(t, e.Has("nginx.conf"))
	})
}

func TestExportTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ExportTemplates(dir))

	exported, err := LoadEngine(dir)
	require.NoError(t, err)
	assert.Equal(t, embeddedEngine(t).Templates(), exported.Templates())

	out, err := exported.Render("nginx.conf", minimalDeclaration(t))
	require.NoError(t, err)
	assert.Equal(t, minimalConfig, out)
}
