package conversation_test

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/merkle"
)

func user(text string) llm.Turn {
	return llm.Turn{Role: llm.RoleUser, Text: text}
}

func assistant(text string) llm.Turn {
	return llm.Turn{Role: llm.RoleAssistant, Text: text}
}

func describeStore(name string, newStore func() *conversation.Store) {
	Describe(name, func() {
		var (
			store *conversation.Store
			ctx   context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = newStore()
		})

		AfterEach(func() {
			Expect(store.Close()).To(Succeed())
		})

		Describe("Create", func() {
			It("assigns an ID and the default title", func() {
				c, err := store.Create(ctx, "", conversation.CategoryStrategy)
				Expect(err).NotTo(HaveOccurred())
				Expect(c.ID).NotTo(BeEmpty())
				Expect(c.Title).To(Equal(conversation.DefaultTitle))
				Expect(c.Category).To(Equal(conversation.CategoryStrategy))
				Expect(c.HeadHash).To(BeEmpty())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.ID).To(Equal(c.ID))
				Expect(got.CreatedAt.Equal(c.CreatedAt)).To(BeTrue())
			})

			It("keeps an explicit title", func() {
				c, err := store.Create(ctx, "Q3 roadmap", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(c.Title).To(Equal("Q3 roadmap"))
			})
		})

		Describe("Append and History", func() {
			It("advances the head and returns turns oldest first", func() {
				c, _ := store.Create(ctx, "", "")

				c, err := store.Append(ctx, c.ID, user("How do I build a roadmap?"), assistant("Start with outcomes."))
				Expect(err).NotTo(HaveOccurred())
				Expect(c.HeadHash).NotTo(BeEmpty())

				_, err = store.Append(ctx, c.ID, user("And the backlog?"), assistant("Groom it weekly."))
				Expect(err).NotTo(HaveOccurred())

				turns, err := store.Turns(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(turns).To(Equal([]llm.Turn{
					user("How do I build a roadmap?"),
					assistant("Start with outcomes."),
					user("And the backlog?"),
					assistant("Groom it weekly."),
				}))

				window, err := store.History(ctx, c.ID, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(window).To(Equal([]llm.Turn{
					assistant("Start with outcomes."),
					user("And the backlog?"),
					assistant("Groom it weekly."),
				}))
			})

			It("returns an empty history for a new conversation", func() {
				c, _ := store.Create(ctx, "", "")

				turns, err := store.History(ctx, c.ID, 6)
				Expect(err).NotTo(HaveOccurred())
				Expect(turns).To(BeEmpty())
			})

			It("names the conversation after the first user message", func() {
				c, _ := store.Create(ctx, "", "")
				long := strings.Repeat("roadmap ", 10)

				c, err := store.Append(ctx, c.ID, user(long), assistant("ok"))
				Expect(err).NotTo(HaveOccurred())
				Expect(c.Title).To(Equal(long[:50] + "..."))

				c, err = store.Append(ctx, c.ID, user("something else"))
				Expect(err).NotTo(HaveOccurred())
				Expect(c.Title).To(Equal(long[:50] + "..."))
			})

			It("rejects turns with unknown roles", func() {
				c, _ := store.Create(ctx, "", "")

				_, err := store.Append(ctx, c.ID, llm.Turn{Role: "system", Text: "x"})
				Expect(err).To(MatchError(ContainSubstring("invalid role")))

				turns, _ := store.Turns(ctx, c.ID)
				Expect(turns).To(BeEmpty())
			})

			It("fails for unknown conversations", func() {
				_, err := store.Append(ctx, "missing", user("hello"))
				Expect(err).To(BeAssignableToTypeOf(conversation.ErrNotFound{}))
			})

			It("shares nodes between conversations with the same prefix", func() {
				a, _ := store.Create(ctx, "", "")
				b, _ := store.Create(ctx, "", "")

				a, _ = store.Append(ctx, a.ID, user("What is an MVP?"), assistant("Smallest testable product."))
				b, _ = store.Append(ctx, b.ID, user("What is an MVP?"), assistant("Smallest testable product."))
				Expect(a.HeadHash).To(Equal(b.HeadHash))
			})
		})

		Describe("List, Delete and Clear", func() {
			It("lists most recently updated first", func() {
				first, _ := store.Create(ctx, "first", "")
				second, _ := store.Create(ctx, "second", "")
				_, err := store.Append(ctx, first.ID, user("Define our north star metric"))
				Expect(err).NotTo(HaveOccurred())

				list, err := store.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(2))
				Expect(list[0].ID).To(Equal(first.ID))
				Expect(list[1].ID).To(Equal(second.ID))
			})

			It("deletes a single conversation", func() {
				c, _ := store.Create(ctx, "", "")
				Expect(store.Delete(ctx, c.ID)).To(Succeed())

				_, err := store.Get(ctx, c.ID)
				Expect(err).To(Equal(conversation.ErrNotFound{ID: c.ID}))
				Expect(store.Delete(ctx, c.ID)).To(BeAssignableToTypeOf(conversation.ErrNotFound{}))
			})

			It("clears every conversation", func() {
				_, _ = store.Create(ctx, "", "")
				_, _ = store.Create(ctx, "", "")
				Expect(store.Clear(ctx)).To(Succeed())

				list, err := store.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())
			})
		})

		Describe("Import", func() {
			It("copies a record whose head is already in the DAG", func() {
				nodes := merkle.Chain(nil, user("What is a PRD?"), assistant("A product requirements document."))
				for _, n := range nodes {
					_, err := store.DAG().Put(ctx, n)
					Expect(err).NotTo(HaveOccurred())
				}

				imported := &conversation.Conversation{
					ID:        "imported-1",
					Title:     "What is a PRD?",
					HeadHash:  nodes[1].Hash,
					CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
					UpdatedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
				}
				isNew, err := store.Import(ctx, imported)
				Expect(err).NotTo(HaveOccurred())
				Expect(isNew).To(BeTrue())

				got, err := store.Get(ctx, "imported-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.UpdatedAt).To(Equal(imported.UpdatedAt))

				turns, err := store.Turns(ctx, "imported-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(turns).To(HaveLen(2))

				isNew, err = store.Import(ctx, imported)
				Expect(err).NotTo(HaveOccurred())
				Expect(isNew).To(BeFalse())
			})

			It("refuses a record whose head is missing", func() {
				_, err := store.Import(ctx, &conversation.Conversation{ID: "orphan", Title: "x", HeadHash: "deadbeef"})
				Expect(err).To(MatchError(ContainSubstring("head node deadbeef is missing")))

				_, err = store.Get(ctx, "orphan")
				Expect(err).To(MatchError(conversation.ErrNotFound{ID: "orphan"}))
			})
		})
	})
}

// steppingClock advances one second per call so UpdatedAt ordering is deterministic.
func steppingClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

var _ = Describe("Store", func() {
	describeStore("with memory backends", func() *conversation.Store {
		s := conversation.NewStore(merkle.NewMemoryStorer(), conversation.NewMemoryIndex(), zap.NewNop())
		conversation.SetClock(s, steppingClock())
		return s
	})

	describeStore("with SQLite backends", func() *conversation.Store {
		path := filepath.Join(GinkgoT().TempDir(), "pmassist.db")
		dag, err := merkle.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		index, err := conversation.NewSQLiteIndex(path)
		Expect(err).NotTo(HaveOccurred())

		s := conversation.NewStore(dag, index, zap.NewNop())
		conversation.SetClock(s, steppingClock())
		return s
	})
})

var _ = Describe("Categories", func() {
	It("lists the six categories in display order", func() {
		names := []conversation.Category{}
		for _, c := range conversation.Categories() {
			names = append(names, c.Name)
			Expect(c.Actions).NotTo(BeEmpty())
		}
		Expect(names).To(Equal([]conversation.Category{
			conversation.CategoryStrategy,
			conversation.CategoryExecution,
			conversation.CategoryResearch,
			conversation.CategoryAnalytics,
			conversation.CategoryTechnical,
			conversation.CategoryStakeholder,
		}))
	})

	It("parses known names and rejects unknown ones", func() {
		c, err := conversation.ParseCategory("analytics")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(conversation.CategoryAnalytics))

		c, err = conversation.ParseCategory("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeEmpty())

		_, err = conversation.ParseCategory("sports")
		Expect(err).To(HaveOccurred())
	})
})
