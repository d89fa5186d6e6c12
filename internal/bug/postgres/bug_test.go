package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/bug"
	bugDatamodel "github.com/irfansh/bugtracker/internal/core/datamodel/bug"
)

func TestBugRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BugRepository Suite")
}

var _ = Describe("BugRepository", func() {
	var (
		db   *gorm.DB
		repo bug.Repository
		ctx  context.Context
	)

	newBug := func(title string, projectID int64) *bug.Bug {
		return &bug.Bug{
			Title:     title,
			Type:      bug.TypeFeature,
			Status:    bug.StatusNew,
			ProjectID: projectID,
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&bugDatamodel.Bug{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewBugRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create", func() {
		It("persists the bug and assigns an id", func() {
			dev := int64(4)
			deadline := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
			b := newBug("Login broken", 10)
			b.Description = "password field rejects valid input"
			b.Deadline = &deadline
			b.AssignedDeveloperID = &dev

			Expect(repo.Create(ctx, b)).To(Succeed())
			Expect(b.ID).NotTo(BeZero())

			loaded, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Title).To(Equal("Login broken"))
			Expect(loaded.Description).To(Equal("password field rejects valid input"))
			Expect(loaded.ProjectID).To(Equal(int64(10)))
			Expect(loaded.AssignedDeveloperID).To(HaveValue(Equal(dev)))
			Expect(loaded.Deadline).NotTo(BeNil())
		})

		It("rejects a duplicate title", func() {
			Expect(repo.Create(ctx, newBug("Login broken", 10))).To(Succeed())
			err := repo.Create(ctx, newBug("Login broken", 11))
			Expect(err).To(Equal(apperrors.ErrBugTitleTaken))
		})
	})

	Describe("GetByID", func() {
		It("returns not-found for absent ids", func() {
			_, err := repo.GetByID(ctx, 9999)
			Expect(err).To(Equal(apperrors.ErrBugNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			dev := int64(4)
			a := newBug("A", 10)
			a.AssignedDeveloperID = &dev
			Expect(repo.Create(ctx, a)).To(Succeed())
			Expect(repo.Create(ctx, newBug("B", 10))).To(Succeed())
			Expect(repo.Create(ctx, newBug("C", 20))).To(Succeed())
		})

		It("returns everything when no filter narrows", func() {
			bugs, err := repo.List(ctx, bug.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(3))
		})

		It("restricts to the visibility set", func() {
			bugs, err := repo.List(ctx, bug.ListFilter{ProjectIDs: []int64{20}})
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(1))
			Expect(bugs[0].Title).To(Equal("C"))
		})

		It("returns an empty slice for an empty visibility set", func() {
			bugs, err := repo.List(ctx, bug.ListFilter{ProjectIDs: []int64{}})
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(BeEmpty())
		})

		It("narrows to a single project", func() {
			pid := int64(10)
			bugs, err := repo.List(ctx, bug.ListFilter{ProjectID: &pid})
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(2))
		})

		It("narrows to the assigned developer", func() {
			dev := int64(4)
			bugs, err := repo.List(ctx, bug.ListFilter{AssignedDeveloperID: &dev})
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(HaveLen(1))
			Expect(bugs[0].Title).To(Equal("A"))
		})

		It("combines the visibility set with the developer filter", func() {
			dev := int64(4)
			bugs, err := repo.List(ctx, bug.ListFilter{ProjectIDs: []int64{20}, AssignedDeveloperID: &dev})
			Expect(err).NotTo(HaveOccurred())
			Expect(bugs).To(BeEmpty())
		})
	})

	Describe("TitleTaken", func() {
		It("detects existing titles excluding the given id", func() {
			b := newBug("Login broken", 10)
			Expect(repo.Create(ctx, b)).To(Succeed())

			taken, err := repo.TitleTaken(ctx, "Login broken", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(taken).To(BeTrue())

			taken, err = repo.TitleTaken(ctx, "Login broken", b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(taken).To(BeFalse())
		})
	})

	Describe("Update", func() {
		It("writes every column including cleared ones", func() {
			dev := int64(4)
			b := newBug("Login broken", 10)
			b.AssignedDeveloperID = &dev
			Expect(repo.Create(ctx, b)).To(Succeed())

			b.Title = "Login still broken"
			b.Type = bug.TypeBug
			b.Status = bug.StatusResolved
			b.AssignedDeveloperID = nil
			Expect(repo.Update(ctx, b)).To(Succeed())

			loaded, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Title).To(Equal("Login still broken"))
			Expect(loaded.Type).To(Equal(bug.TypeBug))
			Expect(loaded.Status).To(Equal(bug.StatusResolved))
			Expect(loaded.AssignedDeveloperID).To(BeNil())
		})

		It("stores the screenshot reference", func() {
			b := newBug("Login broken", 10)
			Expect(repo.Create(ctx, b)).To(Succeed())

			ref := "abc123.png"
			b.Screenshot = &ref
			Expect(repo.Update(ctx, b)).To(Succeed())

			loaded, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Screenshot).To(HaveValue(Equal(ref)))
		})

		It("returns not-found for absent bugs", func() {
			ghost := newBug("Ghost", 10)
			ghost.ID = 9999
			Expect(repo.Update(ctx, ghost)).To(Equal(apperrors.ErrBugNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the bug", func() {
			b := newBug("Login broken", 10)
			Expect(repo.Create(ctx, b)).To(Succeed())

			Expect(repo.Delete(ctx, b.ID)).To(Succeed())
			_, err := repo.GetByID(ctx, b.ID)
			Expect(err).To(Equal(apperrors.ErrBugNotFound))
		})

		It("returns not-found for absent ids", func() {
			Expect(repo.Delete(ctx, 9999)).To(Equal(apperrors.ErrBugNotFound))
		})
	})
})
