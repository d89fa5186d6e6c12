package authz_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/irfansh/bugtracker/internal/authz"
)

func TestAuthz(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Authz Suite")
}

var _ = Describe("ParseRole", func() {
	It("accepts the four known roles", func() {
		for _, s := range []string{"admin", "manager", "qa", "dev"} {
			role, err := authz.ParseRole(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Valid()).To(BeTrue())
		}
	})

	It("rejects unknown roles", func() {
		_, err := authz.ParseRole("superuser")
		Expect(err).To(HaveOccurred())

		_, err = authz.ParseRole("")
		Expect(err).To(HaveOccurred())
	})

	It("is case sensitive", func() {
		_, err := authz.ParseRole("Admin")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ScopeForProjects", func() {
	It("gives admins everything", func() {
		scope := authz.ScopeForProjects(authz.Principal{UserID: 1, Role: authz.RoleAdmin})
		Expect(scope.All).To(BeTrue())
	})

	It("restricts each member role to its own set", func() {
		for _, role := range []authz.Role{authz.RoleManager, authz.RoleQa, authz.RoleDev} {
			scope := authz.ScopeForProjects(authz.Principal{UserID: 42, Role: role})
			Expect(scope.All).To(BeFalse())
			Expect(scope.UserID).To(Equal(int64(42)))
			Expect(scope.MemberRole).To(Equal(role))
		}
	})
})

var _ = Describe("CanSeeProject", func() {
	membership := authz.ProjectMembership{
		Managers:   []int64{1},
		Qas:        []int64{2},
		Developers: []int64{3},
	}

	It("lets admins see any project", func() {
		Expect(authz.CanSeeProject(authz.Principal{UserID: 99, Role: authz.RoleAdmin}, membership)).To(BeTrue())
		Expect(authz.CanSeeProject(authz.Principal{UserID: 99, Role: authz.RoleAdmin}, authz.ProjectMembership{})).To(BeTrue())
	})

	It("checks only the set matching the principal's role", func() {
		// user 2 is a qa member; as qa they see it, as manager they do not
		Expect(authz.CanSeeProject(authz.Principal{UserID: 2, Role: authz.RoleQa}, membership)).To(BeTrue())
		Expect(authz.CanSeeProject(authz.Principal{UserID: 2, Role: authz.RoleManager}, membership)).To(BeFalse())
		Expect(authz.CanSeeProject(authz.Principal{UserID: 2, Role: authz.RoleDev}, membership)).To(BeFalse())
	})

	It("denies non-members of the matching set", func() {
		Expect(authz.CanSeeProject(authz.Principal{UserID: 7, Role: authz.RoleDev}, membership)).To(BeFalse())
	})
})

var _ = Describe("CanMutateProject", func() {
	membership := authz.ProjectMembership{
		Managers:   []int64{1},
		Qas:        []int64{2},
		Developers: []int64{3},
	}

	It("allows admins and member managers", func() {
		Expect(authz.CanMutateProject(authz.Principal{UserID: 99, Role: authz.RoleAdmin}, membership)).To(BeTrue())
		Expect(authz.CanMutateProject(authz.Principal{UserID: 1, Role: authz.RoleManager}, membership)).To(BeTrue())
	})

	It("denies non-member managers, qas and devs", func() {
		Expect(authz.CanMutateProject(authz.Principal{UserID: 5, Role: authz.RoleManager}, membership)).To(BeFalse())
		Expect(authz.CanMutateProject(authz.Principal{UserID: 2, Role: authz.RoleQa}, membership)).To(BeFalse())
		Expect(authz.CanMutateProject(authz.Principal{UserID: 3, Role: authz.RoleDev}, membership)).To(BeFalse())
	})
})

var _ = Describe("CanCreateBug", func() {
	membership := authz.ProjectMembership{
		Managers:   []int64{1},
		Qas:        []int64{2},
		Developers: []int64{3},
	}

	It("allows admins, member managers and member qas", func() {
		Expect(authz.CanCreateBug(authz.Principal{UserID: 99, Role: authz.RoleAdmin}, membership)).To(BeTrue())
		Expect(authz.CanCreateBug(authz.Principal{UserID: 1, Role: authz.RoleManager}, membership)).To(BeTrue())
		Expect(authz.CanCreateBug(authz.Principal{UserID: 2, Role: authz.RoleQa}, membership)).To(BeTrue())
	})

	It("denies devs even when they are members", func() {
		Expect(authz.CanCreateBug(authz.Principal{UserID: 3, Role: authz.RoleDev}, membership)).To(BeFalse())
	})

	It("denies non-member managers and qas", func() {
		Expect(authz.CanCreateBug(authz.Principal{UserID: 9, Role: authz.RoleManager}, membership)).To(BeFalse())
		Expect(authz.CanCreateBug(authz.Principal{UserID: 9, Role: authz.RoleQa}, membership)).To(BeFalse())
	})
})

var _ = Describe("CanMutateBug", func() {
	membership := authz.ProjectMembership{
		Managers:   []int64{1},
		Qas:        []int64{2},
		Developers: []int64{3, 4},
	}
	assigned := int64(3)

	It("gives admins and member managers/qas full mutation", func() {
		for _, p := range []authz.Principal{
			{UserID: 99, Role: authz.RoleAdmin},
			{UserID: 1, Role: authz.RoleManager},
			{UserID: 2, Role: authz.RoleQa},
		} {
			mutation, ok := authz.CanMutateBug(p, membership, &assigned)
			Expect(ok).To(BeTrue())
			Expect(mutation.StatusOnly).To(BeFalse())
		}
	})

	It("gives the assigned developer status-only mutation", func() {
		mutation, ok := authz.CanMutateBug(authz.Principal{UserID: 3, Role: authz.RoleDev}, membership, &assigned)
		Expect(ok).To(BeTrue())
		Expect(mutation.StatusOnly).To(BeTrue())
	})

	It("denies unassigned developers, member or not", func() {
		_, ok := authz.CanMutateBug(authz.Principal{UserID: 4, Role: authz.RoleDev}, membership, &assigned)
		Expect(ok).To(BeFalse())

		_, ok = authz.CanMutateBug(authz.Principal{UserID: 4, Role: authz.RoleDev}, membership, nil)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("User management checks", func() {
	It("restricts listing users to admins", func() {
		Expect(authz.CanManageUsers(authz.Principal{Role: authz.RoleAdmin})).To(BeTrue())
		Expect(authz.CanManageUsers(authz.Principal{Role: authz.RoleManager})).To(BeFalse())
		Expect(authz.CanManageUsers(authz.Principal{Role: authz.RoleQa})).To(BeFalse())
		Expect(authz.CanManageUsers(authz.Principal{Role: authz.RoleDev})).To(BeFalse())
	})

	It("lets anyone update themselves and admins update anyone", func() {
		Expect(authz.CanUpdateUser(authz.Principal{UserID: 5, Role: authz.RoleDev}, 5)).To(BeTrue())
		Expect(authz.CanUpdateUser(authz.Principal{UserID: 5, Role: authz.RoleDev}, 6)).To(BeFalse())
		Expect(authz.CanUpdateUser(authz.Principal{UserID: 1, Role: authz.RoleAdmin}, 6)).To(BeTrue())
	})
})
