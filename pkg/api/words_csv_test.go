package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/lexilight/pkg/db"
)

func postCSV(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/words/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestImportWords(t *testing.T) {
	tests := []struct {
		name       string
		csv        string
		wantStatus int
		want       db.ImportResult
	}{
		{
			name: "valid",
			csv: `Word,Level,Language,Notes,Definition,Date Added,Related Words
apple,2,en,,"a fruit, round",,
pear,3,en,,,,`,
			wantStatus: http.StatusOK,
			want:       db.ImportResult{Imported: 2},
		},
		{
			name: "bad rows are reported",
			csv: `Word,Level
apple,x
pear,7`,
			wantStatus: http.StatusOK,
			want:       db.ImportResult{Skipped: 2},
		},
		{
			name:       "missing word column",
			csv:        `Level,Language`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupTestHandler(t, "")
			rec := postCSV(t, router, tt.csv)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			got := decode[db.ImportResult](t, rec)
			assert.Equal(t, tt.want.Imported, got.Imported)
			assert.Equal(t, tt.want.Updated, got.Updated)
			assert.Equal(t, tt.want.Skipped, got.Skipped)
		})
	}
}

func TestImportWordsMultipart(t *testing.T) {
	_, router := setupTestHandler(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "words.csv")
	require.NoError(t, err)
	fw.Write([]byte("Word,Level,Language\n犬,2,ja\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/words/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[db.ImportResult](t, rec).Imported)
}

func TestImportWordsReachesSessions(t *testing.T) {
	_, router := setupTestHandler(t, "")
	sess := decode[SessionResponse](t, do(t, router, http.MethodPost, "/api/v1/sessions", SessionRequest{HTML: `<p>an apple</p>`}))

	require.Equal(t, http.StatusOK, postCSV(t, router, "Word,Level\napple,4\n").Code)

	got := decode[SessionResponse](t, do(t, router, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil))
	assert.Contains(t, got.HTML, `highlight-level-4`)
}

func TestImportWordsRequiresToken(t *testing.T) {
	_, router := setupTestHandler(t, "secret")
	assert.Equal(t, http.StatusUnauthorized, postCSV(t, router, "Word\napple\n").Code)
}

func TestExportWords(t *testing.T) {
	_, router := setupTestHandler(t, "secret")

	seed := "Word,Level,Language\n犬,2,ja\n猫,4,ja\ndog,4,en\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/words/import", strings.NewReader(seed))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"犬", "猫", "dog"}},
		{name: "language", query: "?language=ja", want: []string{"犬", "猫"}},
		{name: "level", query: "?level=4", want: []string{"猫", "dog"}},
		{name: "language and level", query: "?language=ja&level=4", want: []string{"猫"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// exports are reads and need no token
			rec := do(t, router, http.MethodGet, "/api/v1/words/export"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "words.csv")

			lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
			require.NotEmpty(t, lines)
			assert.Equal(t, "Word,Level,Language,Notes,Definition,Date Added,Related Words", lines[0])
			var words []string
			for _, l := range lines[1:] {
				words = append(words, strings.SplitN(l, ",", 2)[0])
			}
			assert.Equal(t, tt.want, words)
		})
	}
}
