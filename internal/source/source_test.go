package source

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKindFromPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path    string
		want    Kind
		wantErr bool
	}{
		{path: "resume.txt", want: KindText},
		{path: "resume.PDF", want: KindPDF},
		{path: "cv.docx", want: KindDOCX},
		{path: "job.html", want: KindHTML},
		{path: "notes", want: KindText},
		{path: "resume.doc", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			got, err := KindFromPath(tc.path)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKindFromMIME(t *testing.T) {
	t.Parallel()

	got, err := KindFromMIME("text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, KindText, got)

	_, err = KindFromMIME("image/png")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReadFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Skills: Go"), 0o600))

	text, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Skills: Go", text)
}

func TestExtractRejectsCorruptDocuments(t *testing.T) {
	t.Parallel()

	_, err := Extract(KindPDF, []byte("not a pdf"))
	assert.Error(t, err)

	_, err = Extract(KindDOCX, []byte("not a zip"))
	assert.Error(t, err)
}

func TestDocxBodyText(t *testing.T) {
	t.Parallel()

	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Skills</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Go,</w:t><w:tab/><w:t>Kubernetes</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	text, err := docxBodyText(body)
	require.NoError(t, err)
	assert.Equal(t, "Skills\nGo,\tKubernetes\n", text)
}

func TestHTMLText(t *testing.T) {
	t.Parallel()

	html := `<p><strong>Requirements:</strong></p><ul><li>Go</li><li>Kubernetes  and <b>AWS</b></li></ul>` +
		`<script>alert(1)</script><p>Remote<br>friendly</p>`

	text, err := HTMLText(html)
	require.NoError(t, err)
	assert.Equal(t, "Requirements:\n- Go\n- Kubernetes and AWS\nRemote\nfriendly", text)
}

func TestHHVacancy(t *testing.T) {
	vacancy := map[string]any{
		"id":          "42",
		"name":        "Go Developer",
		"description": "<p><strong>Requirements:</strong></p><ul><li>Go</li></ul>",
		"key_skills":  []map[string]string{{"name": "Kubernetes"}, {"name": "PostgreSQL"}},
		"employer":    map[string]string{"name": "Acme"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vacancies/42" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_ = json.NewEncoder(gz).Encode(vacancy)
	}))
	defer srv.Close()

	c := NewHH(zap.NewNop(), "token")
	c.APIURL = srv.URL

	v, err := c.Vacancy(context.Background(), "hh:42")
	require.NoError(t, err)
	assert.Equal(t, "Go Developer (Acme)", v.Label())

	text, err := v.Text()
	require.NoError(t, err)
	assert.Equal(t, "Go Developer\nRequirements:\n- Go\nKey skills: Kubernetes, PostgreSQL", text)

	_, err = c.Vacancy(context.Background(), "7")
	assert.ErrorIs(t, err, ErrVacancyNotFound)
}

func TestIsVacancyRef(t *testing.T) {
	t.Parallel()

	assert.True(t, IsVacancyRef("hh:123"))
	assert.False(t, IsVacancyRef("job.txt"))
}
