package bug_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/bug"
)

type stubBugService struct {
	updateCalled bool
	updatedDTO   bug.UpdateBugDTO
	gotUpload    bool
}

func (s *stubBugService) Create(ctx context.Context, p authz.Principal, dto bug.CreateBugDTO, screenshot *bug.Upload) (*bug.Bug, error) {
	return &bug.Bug{}, nil
}

func (s *stubBugService) List(ctx context.Context, p authz.Principal, projectID *int64, assignedToMe bool) ([]*bug.Bug, error) {
	return nil, nil
}

func (s *stubBugService) GetByID(ctx context.Context, p authz.Principal, id int64) (*bug.Bug, error) {
	return &bug.Bug{ID: id}, nil
}

func (s *stubBugService) Update(ctx context.Context, p authz.Principal, id int64, dto bug.UpdateBugDTO, screenshot *bug.Upload) (*bug.Bug, error) {
	s.updateCalled = true
	s.updatedDTO = dto
	s.gotUpload = screenshot != nil
	return &bug.Bug{ID: id}, nil
}

func (s *stubBugService) Delete(ctx context.Context, p authz.Principal, id int64) error {
	return nil
}

var _ = Describe("Handler", func() {
	var (
		service *stubBugService
		handler *bug.Handler
	)

	reporter := &authz.Principal{UserID: 3, Email: "qa@mail.com", Role: authz.RoleQa}

	patchRequest := func(body string, contentType string) *http.Request {
		req := httptest.NewRequest(http.MethodPatch, "/bugs/1", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)

		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", "1")
		ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
		ctx = authz.ContextWithPrincipal(ctx, reporter)
		return req.WithContext(ctx)
	}

	BeforeEach(func() {
		service = &stubBugService{}
		handler = bug.NewHandler(service, 1<<20)
	})

	Describe("Update", func() {
		It("rejects a body that changes nothing", func() {
			rec := httptest.NewRecorder()
			handler.Update(rec, patchRequest(`{}`, "application/json"))

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.updateCalled).To(BeFalse())
		})

		It("passes through a body with at least one field", func() {
			rec := httptest.NewRecorder()
			handler.Update(rec, patchRequest(`{"status":"started"}`, "application/json"))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.updateCalled).To(BeTrue())
			Expect(service.updatedDTO.Status).To(HaveValue(Equal("started")))
		})

		It("treats a lone screenshot upload as a change", func() {
			var buf bytes.Buffer
			form := multipart.NewWriter(&buf)
			part, err := form.CreateFormFile("screenshot", "shot.png")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("png-bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Close()).To(Succeed())

			rec := httptest.NewRecorder()
			handler.Update(rec, patchRequest(buf.String(), form.FormDataContentType()))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.updateCalled).To(BeTrue())
			Expect(service.gotUpload).To(BeTrue())
		})
	})
})
