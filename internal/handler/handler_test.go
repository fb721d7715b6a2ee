package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tumapply/internal/domain"
)

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, string) (domain.Actor, error) {
	return domain.Actor{}, fmt.Errorf("%w: token expired", domain.ErrForbidden)
}

// anonymousVerifier is never called, requests without a token are anonymous.
type anonymousVerifier struct{}

func (anonymousVerifier) Verify(context.Context, string) (domain.Actor, error) {
	return domain.Actor{}, errors.New("unexpected token")
}

func newTestRouter() http.Handler {
	b := base{verifier: rejectingVerifier{}, logger: zap.NewNop()}
	return NewRouter(Handlers{
		Applications: &ApplicationHandler{base: b},
		Profiles:     &ProfileHandler{base: b},
		Documents:    &DocumentHandler{base: b},
	}, time.Minute)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrNotFound:            http.StatusNotFound,
		domain.ErrInvalidParameter:    http.StatusBadRequest,
		domain.ErrForbidden:           http.StatusForbidden,
		domain.ErrOperationNotAllowed: http.StatusConflict,
		domain.ErrUnsupported:         http.StatusUnprocessableEntity,
		domain.ErrUpload:              http.StatusBadGateway,
		errors.New("boom"):            http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func TestRouter_InvalidTokenIsForbidden(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestRouter_InvalidIDIsBadRequest(t *testing.T) {
	r := newTestRouter()

	for _, path := range []string{
		"/v1/applications/not-a-uuid",
		"/v1/documents/not-a-uuid",
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/42/applications", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UnknownCategoryIsUnprocessable(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/profile/documents/PHOTO", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartRequest(t *testing.T, target string, parts map[string][]byte, order ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range order {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(parts[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestReadFiles(t *testing.T) {
	req := multipartRequest(t, "/", map[string][]byte{
		"a.pdf": []byte("content of a.pdf"),
		"b.pdf": []byte("content of b.pdf"),
	}, "a.pdf", "b.pdf")

	files, err := readFiles(httptest.NewRecorder(), req, UploadLimits{})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].Name)
	assert.Equal(t, []byte("content of b.pdf"), files[1].Data)
}

func TestReadFiles_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	_, err := readFiles(httptest.NewRecorder(), req, UploadLimits{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestReadFiles_RejectsOversizedPart(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 2<<10)
	req := multipartRequest(t, "/", map[string][]byte{
		"a.pdf": big,
		"b.pdf": big,
		"c.pdf": big,
	}, "a.pdf", "b.pdf", "c.pdf")

	_, err := readFiles(httptest.NewRecorder(), req, UploadLimits{MaxFileSize: 1 << 10, MaxFiles: 4})
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.Contains(t, err.Error(), "a.pdf")
}

func TestReadFiles_RejectsOversizedBody(t *testing.T) {
	req := multipartRequest(t, "/", map[string][]byte{
		"huge.pdf": bytes.Repeat([]byte("x"), formOverhead+(4<<10)),
	}, "huge.pdf")

	_, err := readFiles(httptest.NewRecorder(), req, UploadLimits{MaxFileSize: 1 << 10, MaxFiles: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestReadFiles_RejectsTooManyFiles(t *testing.T) {
	req := multipartRequest(t, "/", map[string][]byte{
		"a.pdf": []byte("a"),
		"b.pdf": []byte("b"),
	}, "a.pdf", "b.pdf")

	_, err := readFiles(httptest.NewRecorder(), req, UploadLimits{MaxFileSize: 1 << 10, MaxFiles: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestRouter_OversizedUploadIsBadRequest(t *testing.T) {
	b := base{verifier: anonymousVerifier{}, limits: UploadLimits{MaxFileSize: 16, MaxFiles: 2}, logger: zap.NewNop()}
	r := NewRouter(Handlers{
		Applications: &ApplicationHandler{base: b},
		Profiles:     &ProfileHandler{base: b},
		Documents:    &DocumentHandler{base: b},
	}, time.Minute)

	req := multipartRequest(t, "/v1/profile/documents/CV", map[string][]byte{"cv.pdf": bytes.Repeat([]byte("x"), 64)}, "cv.pdf")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds 16 bytes")
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition(`Lebenslauf "Müller".pdf`)

	assert.Equal(t,
		`attachment; filename="Lebenslauf _M_ller_.pdf"; filename*=UTF-8''Lebenslauf%20%22M%C3%BCller%22.pdf`,
		got)
	for i := 0; i < len(got); i++ {
		assert.Less(t, got[i], byte(0x80))
	}
}
