package settings

import (
	"testing"
	"time"

	"activitymirror/internal/core/redact"
	perr "activitymirror/internal/platform/errors"
	kit "activitymirror/internal/platform/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullTOML = `
[[services]]
service_type = "Gitea"
username = "me"
url = "https://codeberg.org/"
token = "src-token"

[github]
username = "me"
token = "gh-token"
email = "me@users.noreply.github.com"
redact_level = "hashed"
push_method = "HTTP"

[sync]
workdir = "/var/tmp/mirrors"
interval = "90m"

[journal]
postgres_url = "postgres://u:p@localhost:5432/mirror"

[status]
addr = ":4000"
`

func TestLoad_TOML(t *testing.T) {
	p := kit.WriteFile(t, t.TempDir(), "settings.toml", fullTOML)
	s, err := Load(p)
	require.NoError(t, err)

	require.Len(t, s.Services, 1)
	assert.Equal(t, "gitea", s.Services[0].ServiceType)
	assert.Equal(t, "https://codeberg.org", s.Services[0].URL)
	assert.Equal(t, redact.Hashed, s.GitHub.Level())
	assert.Equal(t, PushHTTP, s.GitHub.PushMethod)
	assert.Equal(t, 90*time.Minute, s.Sync.Interval.Duration)
	assert.Equal(t, ":4000", s.Status.Addr)
	assert.Equal(t, p, s.Path())
}

func TestLoad_YAMLDefaults(t *testing.T) {
	p := kit.WriteFile(t, t.TempDir(), "settings.yml", `
services:
  - service_type: forgejo
    username: me
    url: https://git.example.org
    token: t
github:
  username: me
  token: gh
`)
	s, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, redact.PrivateRepos, s.GitHub.Level())
	assert.Equal(t, PushSSH, s.GitHub.PushMethod)
	assert.Empty(t, s.GitHub.Email)
}

func TestDecode_NumericLevel(t *testing.T) {
	for _, tc := range []struct {
		ext, body string
	}{
		{".toml", "[[services]]\nservice_type='gitea'\nusername='me'\nurl='https://c.org'\ntoken='t'\n[github]\nusername='me'\ntoken='g'\nredact_level=2\n"},
		{".yaml", "services: [{service_type: gitea, username: me, url: 'https://c.org', token: t}]\ngithub: {username: me, token: g, redact_level: 2}\n"},
	} {
		s, err := Decode([]byte(tc.body), tc.ext)
		require.NoError(t, err, tc.ext)
		assert.Equal(t, redact.PrivateReposNoCrossLinking, s.GitHub.Level(), tc.ext)
	}
}

func TestDecode_EncryptedRejected(t *testing.T) {
	body := "[[services]]\nservice_type='gitea'\nusername='me'\nurl='https://c.org'\ntoken='t'\n[github]\nusername='me'\ntoken='g'\nredact_level='encrypted'\n"
	_, err := Decode([]byte(body), ".toml")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotImplemented))
	e, _ := perr.As(err)
	assert.Equal(t, "github.redact_level", e.Field())
}

func TestDecode_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"no services": {
			body:  "[github]\nusername='me'\ntoken='g'\n",
			field: "services",
		},
		"bad service type": {
			body:  "[[services]]\nservice_type='gitlab'\nusername='me'\nurl='https://c.org'\ntoken='t'\n[github]\nusername='me'\ntoken='g'\n",
			field: "services[0].service_type",
		},
		"missing github token": {
			body:  "[[services]]\nservice_type='gitea'\nusername='me'\nurl='https://c.org'\ntoken='t'\n[github]\nusername='me'\n",
			field: "github.token",
		},
		"bad push method": {
			body:  "[[services]]\nservice_type='gitea'\nusername='me'\nurl='https://c.org'\ntoken='t'\n[github]\nusername='me'\ntoken='g'\npush_method='ftp'\n",
			field: "github.push_method",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.body), ".toml")
			require.Error(t, err)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation), "code %v", perr.CodeOf(err))
			e, _ := perr.As(err)
			assert.Equal(t, tc.field, e.Field())
		})
	}
}

func TestDecode_ConfigErrors(t *testing.T) {
	_, err := Decode([]byte("x = "), ".toml")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfig), "syntax: %v", err)

	_, err = Decode([]byte("surprise = 1\n"), ".toml")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfig), "unknown key: %v", err)

	_, err = Decode([]byte(""), ".yaml")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfig), "empty yaml: %v", err)

	_, err = Decode([]byte("{}"), ".json")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfig), "format: %v", err)

	_, err = Load(t.TempDir() + "/missing.toml")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConfig), "missing file: %v", err)
}

func TestDecode_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("MIRROR_GITHUB_TOKEN", "from-env")
	t.Setenv("MIRROR_SERVICE_0_TOKEN", "src-env")
	body := "[[services]]\nservice_type='gitea'\nusername='me'\nurl='https://c.org'\n[github]\nusername='me'\n"
	s, err := Decode([]byte(body), ".toml")
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.GitHub.Token)
	assert.Equal(t, "src-env", s.Services[0].Token)
}
