package auth_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/irfansh/bugtracker/internal/auth"
	"github.com/irfansh/bugtracker/internal/authz"
)

var _ = Describe("RequireRole", func() {
	var (
		gate       http.Handler
		nextCalled bool
	)

	request := func(p *authz.Principal) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		if p != nil {
			req = req.WithContext(authz.ContextWithPrincipal(req.Context(), p))
		}
		return req
	}

	BeforeEach(func() {
		nextCalled = false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
			w.WriteHeader(http.StatusOK)
		})
		gate = auth.RequireRole(authz.RoleAdmin)(next)
	})

	It("passes a matching role through", func() {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, request(&authz.Principal{UserID: 1, Role: authz.RoleAdmin}))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(nextCalled).To(BeTrue())
	})

	It("answers forbidden for every other role", func() {
		for _, role := range []authz.Role{authz.RoleManager, authz.RoleQa, authz.RoleDev} {
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, request(&authz.Principal{UserID: 2, Role: role}))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(rec.Body.String()).To(ContainSubstring("FORBIDDEN"))
			Expect(nextCalled).To(BeFalse())
		}
	})

	It("answers unauthorized without a principal", func() {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, request(nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(nextCalled).To(BeFalse())
	})
})
