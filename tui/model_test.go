package tui

import (
	"context"
	"errors"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/pkg/conversation"
	"github.com/papercomputeco/pmassist/pkg/dispatch"
	"github.com/papercomputeco/pmassist/pkg/llm"
	"github.com/papercomputeco/pmassist/pkg/merkle"
	"github.com/papercomputeco/pmassist/pkg/replay"
)

// stubSender replies with text, or fails with err.
type stubSender struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []dispatch.Request
}

func (s *stubSender) Send(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	for _, p := range replay.Prefixes(s.text) {
		req.OnChunk(p)
	}
	return &dispatch.Result{Text: s.text, FinishReason: llm.FinishReasonStop}, nil
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

var _ = Describe("Model", func() {
	var (
		ctx    context.Context
		store  *conversation.Store
		sender *stubSender
		m      Model
		sent   []tea.Msg
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := zap.NewNop()
		store = conversation.NewStore(merkle.NewMemoryStorer(), conversation.NewMemoryIndex(), logger)
		sender = &stubSender{text: "Start with the problem statement."}
		m = New(ctx, sender, store, logger)
		sent = nil
		m.bridge.send = func(msg tea.Msg) { sent = append(sent, msg) }
		m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	})

	typeLine := func(m Model, text string) Model {
		m.input.SetValue(text)
		return m
	}

	// submitAndRun submits the input line and runs the exchange synchronously.
	submitAndRun := func(m Model) (Model, exchangeDoneMsg) {
		m, _ = update(m, key("enter"))
		Expect(m.waiting).To(BeTrue())
		msg := m.exchange(ctx, m.seq, m.current, m.turns[len(m.turns)-1].Text)()
		done, ok := msg.(exchangeDoneMsg)
		Expect(ok).To(BeTrue())
		return m, done
	}

	It("shows the welcome message before the first exchange", func() {
		Expect(m.renderTurns()).To(ContainSubstring("Try one of these"))
	})

	It("runs an exchange, stores it and shows the reply", func() {
		m = typeLine(m, "How do I write a PRD?")
		m, done := submitAndRun(m)

		Expect(done.err).NotTo(HaveOccurred())
		Expect(done.convID).NotTo(BeEmpty())
		Expect(sent).To(HaveLen(5))
		Expect(sent[0]).To(Equal(chunkMsg{seq: 1, prefix: "Start"}))

		for _, c := range sent {
			m, _ = update(m, c)
		}
		Expect(m.streaming).To(Equal("Start with the problem statement."))

		m, cmd := update(m, done)
		Expect(cmd).NotTo(BeNil())
		Expect(m.waiting).To(BeFalse())
		Expect(m.current).To(Equal(done.convID))
		Expect(m.turns).To(Equal([]llm.Turn{
			{Role: llm.RoleUser, Text: "How do I write a PRD?"},
			{Role: llm.RoleAssistant, Text: "Start with the problem statement."},
		}))
		Expect(m.input.Value()).To(BeEmpty())

		turns, err := store.Turns(ctx, done.convID)
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(Equal(m.turns))

		loaded := cmd().(conversationsLoadedMsg)
		Expect(loaded.conversations).To(HaveLen(1))
		Expect(loaded.conversations[0].Title).To(Equal("How do I write a PRD?"))
	})

	It("sends the stored history with follow-up messages", func() {
		m = typeLine(m, "How do I write a PRD?")
		m, done := submitAndRun(m)
		m, _ = update(m, done)

		m = typeLine(m, "Shorter please")
		m, done = submitAndRun(m)
		Expect(done.convID).To(Equal(m.current))
		Expect(sender.requests[1].History).To(HaveLen(2))
	})

	It("ignores blank input", func() {
		m = typeLine(m, "   ")
		m, cmd := update(m, key("enter"))
		Expect(cmd).To(BeNil())
		Expect(m.waiting).To(BeFalse())
	})

	It("cancels the exchange in flight on esc", func() {
		m = typeLine(m, "Draft a roadmap")
		m, _ = update(m, key("enter"))
		Expect(m.waiting).To(BeTrue())

		cancelled := false
		m.cancel = func() { cancelled = true }
		m, _ = update(m, key("esc"))
		Expect(cancelled).To(BeTrue())
	})

	It("restores the message and drops the user turn when the exchange fails", func() {
		sender.err = &dispatch.Error{Kind: dispatch.Cancelled, Message: dispatch.MsgCancelled}
		m = typeLine(m, "Draft a roadmap")
		m, done := submitAndRun(m)

		m, _ = update(m, done)
		Expect(m.turns).To(BeEmpty())
		Expect(m.status).To(Equal(dispatch.MsgCancelled))
		Expect(m.input.Value()).To(Equal("Draft a roadmap"))
	})

	It("shows the error message of other failures", func() {
		sender.err = &dispatch.Error{Kind: dispatch.RateLimited, Message: dispatch.MsgRateLimited}
		m = typeLine(m, "Draft a roadmap")
		m, done := submitAndRun(m)

		m, _ = update(m, done)
		Expect(m.status).To(Equal(dispatch.MsgRateLimited))
	})

	It("stores no conversation when first messages fail", func() {
		sender.err = &dispatch.Error{Kind: dispatch.RateLimited, Message: dispatch.MsgRateLimited}
		for range 3 {
			m = typeLine(m, "Draft a roadmap")
			var done exchangeDoneMsg
			m, done = submitAndRun(m)
			Expect(done.convID).To(BeEmpty())
			m, _ = update(m, done)
		}

		Expect(m.current).To(BeEmpty())
		convs, err := store.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(convs).To(BeEmpty())
	})

	It("drops chunks and results of superseded exchanges", func() {
		m = typeLine(m, "Draft a roadmap")
		m, _ = update(m, key("enter"))

		m, _ = update(m, chunkMsg{seq: m.seq - 1, prefix: "stale"})
		Expect(m.streaming).To(BeEmpty())

		m, _ = update(m, exchangeDoneMsg{seq: m.seq - 1, err: errors.New("stale")})
		Expect(m.waiting).To(BeTrue())
	})

	Describe("sidebar", func() {
		var first, second *conversation.Conversation

		BeforeEach(func() {
			var err error
			first, err = store.Create(ctx, "Roadmap review", conversation.CategoryStrategy)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Append(ctx, first.ID, llm.Turn{Role: llm.RoleUser, Text: "What is a roadmap?"})
			Expect(err).NotTo(HaveOccurred())
			second, err = store.Create(ctx, strings.Repeat("Very long conversation title ", 4), "")
			Expect(err).NotTo(HaveOccurred())

			m, _ = update(m, m.loadConversations()())
			Expect(m.conversations).To(HaveLen(2))
		})

		It("switches focus with tab", func() {
			m, _ = update(m, key("tab"))
			Expect(m.focus).To(Equal(focusSidebar))
			Expect(m.input.Focused()).To(BeFalse())

			m, _ = update(m, key("tab"))
			Expect(m.focus).To(Equal(focusInput))
			Expect(m.input.Focused()).To(BeTrue())
		})

		It("moves the selection and opens a conversation", func() {
			m, _ = update(m, key("tab"))
			m, _ = update(m, key("down"))
			m, _ = update(m, key("down"))
			Expect(m.selected).To(Equal(1))
			m, _ = update(m, key("up"))
			Expect(m.selected).To(Equal(0))

			target := m.conversations[1].ID
			m, _ = update(m, key("down"))
			m, cmd := update(m, key("enter"))
			Expect(cmd).NotTo(BeNil())

			m, _ = update(m, cmd())
			Expect(m.current).To(Equal(target))
		})

		It("opens the stored turns", func() {
			m, _ = update(m, m.openConversation(first.ID)())
			Expect(m.turns).To(Equal([]llm.Turn{{Role: llm.RoleUser, Text: "What is a roadmap?"}}))
		})

		It("deletes the selected conversation", func() {
			m, _ = update(m, m.openConversation(m.conversations[0].ID)())
			deleted := m.conversations[0].ID

			m, cmd := update(m, key("ctrl+d"))
			Expect(cmd).NotTo(BeNil())
			m, cmd = update(m, cmd())
			Expect(m.current).To(BeEmpty())
			Expect(m.turns).To(BeEmpty())

			m, _ = update(m, cmd())
			Expect(m.conversations).To(HaveLen(1))
			Expect(m.conversations[0].ID).NotTo(Equal(deleted))
		})

		It("starts a new conversation with ctrl+n", func() {
			m, _ = update(m, m.openConversation(first.ID)())
			m, _ = update(m, key("ctrl+n"))
			Expect(m.current).To(BeEmpty())
			Expect(m.turns).To(BeEmpty())
			Expect(m.focus).To(Equal(focusInput))
		})

		It("truncates long titles and shows categories", func() {
			view := m.renderSidebar()
			Expect(view).To(ContainSubstring("…"))
			Expect(view).To(ContainSubstring("Strategy"))
			Expect(view).NotTo(ContainSubstring(second.Title))
		})
	})
})
