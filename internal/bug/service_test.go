package bug_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/bug"
	"github.com/irfansh/bugtracker/internal/project"
)

// Mock repository for testing
type mockBugRepository struct {
	bugs        map[int64]*bug.Bug
	nextID      int64
	createError error
	updateError error
	deleteError error
}

func newMockBugRepository() *mockBugRepository {
	return &mockBugRepository{
		bugs:   make(map[int64]*bug.Bug),
		nextID: 1,
	}
}

func (m *mockBugRepository) Create(ctx context.Context, b *bug.Bug) error {
	if m.createError != nil {
		return m.createError
	}
	b.ID = m.nextID
	m.nextID++
	copy := *b
	m.bugs[b.ID] = &copy
	return nil
}

func (m *mockBugRepository) GetByID(ctx context.Context, id int64) (*bug.Bug, error) {
	b, ok := m.bugs[id]
	if !ok {
		return nil, apperrors.ErrBugNotFound
	}
	copy := *b
	return &copy, nil
}

func (m *mockBugRepository) List(ctx context.Context, filter bug.ListFilter) ([]*bug.Bug, error) {
	var result []*bug.Bug
	for _, b := range m.bugs {
		if filter.ProjectIDs != nil && !containsID(filter.ProjectIDs, b.ProjectID) {
			continue
		}
		if filter.ProjectID != nil && b.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.AssignedDeveloperID != nil {
			if b.AssignedDeveloperID == nil || *b.AssignedDeveloperID != *filter.AssignedDeveloperID {
				continue
			}
		}
		copy := *b
		result = append(result, &copy)
	}
	return result, nil
}

func (m *mockBugRepository) TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error) {
	for _, b := range m.bugs {
		if b.Title == title && b.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBugRepository) Update(ctx context.Context, b *bug.Bug) error {
	if m.updateError != nil {
		return m.updateError
	}
	if _, ok := m.bugs[b.ID]; !ok {
		return apperrors.ErrBugNotFound
	}
	copy := *b
	m.bugs[b.ID] = &copy
	return nil
}

func (m *mockBugRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, ok := m.bugs[id]; !ok {
		return apperrors.ErrBugNotFound
	}
	delete(m.bugs, id)
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Mock project directory
type mockProjectDirectory struct {
	projects map[int64]*project.Project
}

func newMockProjectDirectory() *mockProjectDirectory {
	return &mockProjectDirectory{projects: make(map[int64]*project.Project)}
}

func (m *mockProjectDirectory) GetByID(ctx context.Context, id int64) (*project.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrProjectNotFound
	}
	return p, nil
}

func (m *mockProjectDirectory) List(ctx context.Context, scope authz.ProjectScope) ([]*project.Project, error) {
	var result []*project.Project
	for _, p := range m.projects {
		if scope.All || authz.CanSeeProject(authz.Principal{UserID: scope.UserID, Role: scope.MemberRole}, p.Membership()) {
			result = append(result, p)
		}
	}
	return result, nil
}

// Mock file store tracking stored and deleted refs
type mockFileStore struct {
	stored     []string
	deleted    []string
	storeError error
	nextRef    int
}

func (m *mockFileStore) Store(ctx context.Context, filename string, r io.Reader) (string, error) {
	if m.storeError != nil {
		return "", m.storeError
	}
	m.nextRef++
	ref := fmt.Sprintf("stored-%d.png", m.nextRef)
	m.stored = append(m.stored, ref)
	return ref, nil
}

func (m *mockFileStore) Delete(ctx context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

var _ = Describe("BugService", func() {
	var (
		repo     *mockBugRepository
		projects *mockProjectDirectory
		files    *mockFileStore
		service  *bug.Service
		ctx      context.Context

		admin   authz.Principal
		manager authz.Principal
		qa      authz.Principal
		dev     authz.Principal
	)

	BeforeEach(func() {
		repo = newMockBugRepository()
		projects = newMockProjectDirectory()
		files = &mockFileStore{}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = bug.NewService(repo, projects, files, logger)
		ctx = context.Background()

		admin = authz.Principal{UserID: 1, Email: "admin@mail.com", Role: authz.RoleAdmin}
		manager = authz.Principal{UserID: 2, Email: "manager@mail.com", Role: authz.RoleManager}
		qa = authz.Principal{UserID: 3, Email: "qa@mail.com", Role: authz.RoleQa}
		dev = authz.Principal{UserID: 4, Email: "dev@mail.com", Role: authz.RoleDev}

		projects.projects[10] = &project.Project{
			ID:         10,
			Title:      "Tracker",
			Managers:   []int64{manager.UserID},
			Qas:        []int64{qa.UserID},
			Developers: []int64{dev.UserID},
		}
	})

	Describe("Create", func() {
		It("creates a feature with a legal status", func() {
			b, err := service.Create(ctx, qa, bug.CreateBugDTO{
				Title:     "Search is slow",
				Type:      bug.TypeFeature,
				Status:    bug.StatusNew,
				ProjectID: 10,
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID).NotTo(BeZero())
			Expect(b.Status).To(Equal(bug.StatusNew))
		})

		It("rejects an illegal type/status pair", func() {
			_, err := service.Create(ctx, qa, bug.CreateBugDTO{
				Title:     "Broken pair",
				Type:      bug.TypeFeature,
				Status:    bug.StatusResolved,
				ProjectID: 10,
			}, nil)
			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidStatus))
		})

		It("refuses developers even when they are project members", func() {
			_, err := service.Create(ctx, dev, bug.CreateBugDTO{
				Title:     "Dev attempt",
				Type:      bug.TypeBug,
				Status:    bug.StatusNew,
				ProjectID: 10,
			}, nil)
			Expect(err).To(Equal(apperrors.ErrForbidden))
		})

		It("answers not-found for projects outside the principal's scope", func() {
			outsider := authz.Principal{UserID: 77, Role: authz.RoleQa}
			_, err := service.Create(ctx, outsider, bug.CreateBugDTO{
				Title:     "Outsider",
				Type:      bug.TypeBug,
				Status:    bug.StatusNew,
				ProjectID: 10,
			}, nil)
			Expect(err).To(Equal(apperrors.ErrProjectNotFound))
		})

		It("rejects duplicate titles", func() {
			_, err := service.Create(ctx, qa, bug.CreateBugDTO{
				Title: "Once", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, qa, bug.CreateBugDTO{
				Title: "Once", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
			}, nil)
			Expect(err).To(Equal(apperrors.ErrBugTitleTaken))
		})

		It("stores the screenshot and records its reference", func() {
			b, err := service.Create(ctx, qa, bug.CreateBugDTO{
				Title: "With shot", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
			}, &bug.Upload{Filename: "shot.png", Reader: bytes.NewReader([]byte("img"))})
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Screenshot).NotTo(BeNil())
			Expect(files.stored).To(ContainElement(*b.Screenshot))
		})
	})

	Describe("GetByID", func() {
		var created *bug.Bug

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, manager, bug.CreateBugDTO{
				Title: "Visible", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
			}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the bug to project members", func() {
			b, err := service.GetByID(ctx, dev, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Title).To(Equal("Visible"))
		})

		It("answers not-found to non-members, same as for absent ids", func() {
			outsider := authz.Principal{UserID: 77, Role: authz.RoleDev}

			_, errForbidden := service.GetByID(ctx, outsider, created.ID)
			_, errAbsent := service.GetByID(ctx, outsider, 9999)
			Expect(errForbidden).To(Equal(apperrors.ErrBugNotFound))
			Expect(errAbsent).To(Equal(apperrors.ErrBugNotFound))
		})
	})

	Describe("Update", func() {
		var created *bug.Bug

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, manager, bug.CreateBugDTO{
				Title:               "Lifecycle",
				Type:                bug.TypeFeature,
				Status:              bug.StatusNew,
				ProjectID:           10,
				AssignedDeveloperID: &dev.UserID,
			}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("walks a feature through its lifecycle", func() {
			started := bug.StatusStarted
			_, err := service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{Status: &started}, nil)
			Expect(err).NotTo(HaveOccurred())

			completed := bug.StatusCompleted
			b, err := service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{Status: &completed}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Status).To(Equal(bug.StatusCompleted))
		})

		It("re-validates the merged pair when only the type changes", func() {
			completed := bug.StatusCompleted
			_, err := service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{Status: &completed}, nil)
			Expect(err).NotTo(HaveOccurred())

			// completed is illegal for type bug, so the type switch alone must fail
			bugType := bug.TypeBug
			_, err = service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{Type: &bugType}, nil)
			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidStatus))
		})

		It("lets the assigned developer change only the status", func() {
			started := bug.StatusStarted
			b, err := service.Update(ctx, dev, created.ID, bug.UpdateBugDTO{Status: &started}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Status).To(Equal(bug.StatusStarted))

			title := "Renamed"
			_, err = service.Update(ctx, dev, created.ID, bug.UpdateBugDTO{Title: &title}, nil)
			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeForbidden))
		})

		It("denies unassigned developers entirely", func() {
			otherDev := authz.Principal{UserID: 88, Role: authz.RoleDev}
			projects.projects[10].Developers = append(projects.projects[10].Developers, otherDev.UserID)

			started := bug.StatusStarted
			_, err := service.Update(ctx, otherDev, created.ID, bug.UpdateBugDTO{Status: &started}, nil)
			Expect(err).To(Equal(apperrors.ErrForbidden))
		})

		It("replaces the screenshot and deletes the old file afterwards", func() {
			b, err := service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{},
				&bug.Upload{Filename: "first.png", Reader: bytes.NewReader([]byte("a"))})
			Expect(err).NotTo(HaveOccurred())
			firstRef := *b.Screenshot

			b, err = service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{},
				&bug.Upload{Filename: "second.png", Reader: bytes.NewReader([]byte("b"))})
			Expect(err).NotTo(HaveOccurred())
			Expect(*b.Screenshot).NotTo(Equal(firstRef))
			Expect(files.deleted).To(ContainElement(firstRef))
		})

		It("keeps the old file when the record update fails", func() {
			_, err := service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{},
				&bug.Upload{Filename: "first.png", Reader: bytes.NewReader([]byte("a"))})
			Expect(err).NotTo(HaveOccurred())
			stored, _ := repo.GetByID(ctx, created.ID)
			firstRef := *stored.Screenshot

			repo.updateError = fmt.Errorf("db down")
			_, err = service.Update(ctx, manager, created.ID, bug.UpdateBugDTO{},
				&bug.Upload{Filename: "second.png", Reader: bytes.NewReader([]byte("b"))})
			Expect(err).To(HaveOccurred())

			// old file survives, the orphaned new one is cleaned up
			Expect(files.deleted).NotTo(ContainElement(firstRef))
			Expect(files.deleted).To(ContainElement("stored-2.png"))
		})
	})

	Describe("Delete", func() {
		It("removes the record and then its screenshot", func() {
			b, err := service.Create(ctx, qa, bug.CreateBugDTO{
				Title: "Doomed", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
			}, &bug.Upload{Filename: "shot.gif", Reader: bytes.NewReader([]byte("img"))})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, qa, b.ID)).To(Succeed())
			_, err = service.GetByID(ctx, admin, b.ID)
			Expect(err).To(Equal(apperrors.ErrBugNotFound))
			Expect(files.deleted).To(ContainElement(*b.Screenshot))
		})

		It("refuses developers", func() {
			b, err := service.Create(ctx, qa, bug.CreateBugDTO{
				Title: "Sticky", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, dev, b.ID)).To(Equal(apperrors.ErrForbidden))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			projects.projects[20] = &project.Project{
				ID:       20,
				Title:    "Other",
				Managers: []int64{manager.UserID},
			}

			_, err := service.Create(ctx, manager, bug.CreateBugDTO{
				Title: "In tracker", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 10,
				AssignedDeveloperID: &dev.UserID,
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, manager, bug.CreateBugDTO{
				Title: "In other", Type: bug.TypeBug, Status: bug.StatusNew, ProjectID: 20,
			}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("shows admins everything", func() {
			bugs, err := service.List(ctx, admin, nil, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(2))
		})

		It("restricts members to their projects' bugs", func() {
			bugs, err := service.List(ctx, dev, nil, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(1))
			Expect(bugs[0].Title).To(Equal("In tracker"))
		})

		It("returns nothing for principals with no projects", func() {
			outsider := authz.Principal{UserID: 77, Role: authz.RoleQa}
			bugs, err := service.List(ctx, outsider, nil, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(BeEmpty())
		})

		It("narrows to assigned bugs in the my-bugs mode", func() {
			bugs, err := service.List(ctx, dev, nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(1))
			Expect(bugs[0].AssignedDeveloperID).NotTo(BeNil())
			Expect(*bugs[0].AssignedDeveloperID).To(Equal(dev.UserID))
		})

		It("filters by project id", func() {
			projectID := int64(20)
			bugs, err := service.List(ctx, manager, &projectID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(1))
			Expect(bugs[0].Title).To(Equal("In other"))
		})
	})
})
