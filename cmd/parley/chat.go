package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/parley/pkg/controller"
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/gateway"
	"github.com/go-go-golems/parley/pkg/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat against the active session",
	RunE:  runChat,
}

const chatTopic = "chat"

func runChat(cmd *cobra.Command, args []string) error {
	stepSettings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := st.ActiveSession()
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	router.AddHandler("chat-printer", chatTopic, printEvent)

	gw := gateway.NewGateway(stepSettings)
	ctrl := controller.NewController(gw, controller.WithSink(router.Sink(chatTopic)))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return router.Run(egCtx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		repl(egCtx, &replState{
			controller: ctrl,
			store:      st,
			session:    sess,
		})
		return router.Close()
	})

	return eg.Wait()
}

// printEvent renders router events for the terminal: deltas as they stream,
// a newline at settlement, errors inline.
func printEvent(msg *message.Message) error {
	ev, err := events.NewEventFromJson(msg.Payload)
	if err != nil {
		return err
	}
	switch e := ev.(type) {
	case *events.EventPartialCompletion:
		fmt.Print(e.Delta)
	case *events.EventFinal:
		fmt.Println()
	case *events.EventInterrupt:
		fmt.Println("\n[interrupted]")
	case *events.EventError:
		fmt.Printf("\nerror: %s\n", e.ErrorString)
	}
	return nil
}

type replState struct {
	controller *controller.Controller
	store      *store.Store
	session    *conversation.Session
}

func repl(ctx context.Context, state *replState) {
	fmt.Printf("session: %s\n", sessionLabel(state.session))
	fmt.Println("type a message, or /help for commands")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := state.handleCommand(ctx, line); quit {
				return
			}
			continue
		}

		msg := conversation.NewMessage(conversation.RoleUser, line)
		slot := state.session.SubmitUserMessage(msg, true)
		state.generate(ctx, slot)
	}
}

// generate runs one completion to settlement and persists the session.
func (state *replState) generate(ctx context.Context, slot *conversation.Message) {
	done, err := state.controller.StartGeneration(ctx, state.session, slot)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	<-done

	if err := state.store.SaveSession(state.session); err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	}
	if state.session.Name == "" {
		go func() {
			state.controller.AutoNameSession(state.session)
			if err := state.store.SaveSession(state.session); err != nil {
				log.Warn().Err(err).Msg("failed to persist session after naming")
			}
		}()
	}
}

func (state *replState) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`/show               print the conversation
/regenerate         regenerate the last assistant message
/edit <n> <text>    replace message n, forking the old continuation
/branch <n> <i>     switch message n to branch i
/thread             archive the conversation and start fresh
/sessions           list sessions
/new <name>         create and switch to a new session
/switch <n>         switch to session n
/delete <n>         delete session n
/quit               exit`)

	case "/show":
		state.show()

	case "/regenerate":
		state.regenerate(ctx)

	case "/edit":
		if len(fields) < 3 {
			fmt.Println("usage: /edit <n> <text>")
			break
		}
		state.edit(ctx, fields[1], strings.Join(fields[2:], " "))

	case "/branch":
		if len(fields) != 3 {
			fmt.Println("usage: /branch <n> <i>")
			break
		}
		state.branch(fields[1], fields[2])

	case "/thread":
		thread := state.session.StartNewThread()
		if thread == nil {
			fmt.Println("nothing to archive")
			break
		}
		go state.controller.AutoNameThread(state.session, thread)
		if err := state.store.SaveSession(state.session); err != nil {
			log.Warn().Err(err).Msg("failed to persist session")
		}
		fmt.Println("started a new thread")

	case "/sessions":
		state.listSessions()

	case "/new":
		name := strings.Join(fields[1:], " ")
		sess, err := state.store.CreateSession(name)
		if err != nil {
			fmt.Printf("error: %s\n", err)
			break
		}
		state.session = sess
		fmt.Printf("switched to session: %s\n", sessionLabel(sess))

	case "/switch":
		if len(fields) != 2 {
			fmt.Println("usage: /switch <n>")
			break
		}
		state.switchSession(fields[1])

	case "/delete":
		if len(fields) != 2 {
			fmt.Println("usage: /delete <n>")
			break
		}
		state.deleteSession(fields[1])

	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}

func (state *replState) show() {
	for i, msg := range state.session.Conversation() {
		marker := ""
		if msg.Fork != nil {
			marker = fmt.Sprintf(" (branch %d/%d)", msg.Fork.ActiveIndex, len(msg.Fork.Entries)-1)
		}
		if msg.Error != "" {
			marker += " [failed: " + msg.Error + "]"
		}
		fmt.Printf("%3d %s%s\n", i, msg.View(), marker)
	}
}

func (state *replState) regenerate(ctx context.Context) {
	conv := state.session.Conversation()
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == conversation.RoleAssistant && !conv[i].Generating {
			slot, err := state.session.RegenerateMessage(conv[i].ID)
			if err != nil {
				fmt.Printf("error: %s\n", err)
				return
			}
			state.generate(ctx, slot)
			return
		}
	}
	fmt.Println("no assistant message to regenerate")
}

func (state *replState) edit(ctx context.Context, indexArg string, text string) {
	msg, ok := state.messageAt(indexArg)
	if !ok {
		return
	}
	newMsg := conversation.NewMessage(msg.Role, text)
	slot, err := state.session.EditMessage(msg.ID, newMsg)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	state.generate(ctx, slot)
}

func (state *replState) branch(indexArg string, branchArg string) {
	msg, ok := state.messageAt(indexArg)
	if !ok {
		return
	}
	branchIndex, err := strconv.Atoi(branchArg)
	if err != nil {
		fmt.Println("branch index must be a number")
		return
	}
	if err := state.session.ShiftBranch(msg.ID, branchIndex); err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	if err := state.store.SaveSession(state.session); err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	}
	state.show()
}

func (state *replState) messageAt(indexArg string) (*conversation.Message, bool) {
	index, err := strconv.Atoi(indexArg)
	if err != nil {
		fmt.Println("message index must be a number")
		return nil, false
	}
	conv := state.session.Conversation()
	if index < 0 || index >= len(conv) {
		fmt.Printf("no message %d, session has %d messages\n", index, len(conv))
		return nil, false
	}
	return conv[index], true
}

func (state *replState) listSessions() {
	metas, err := state.store.ListSessions()
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	for i, meta := range metas {
		marker := " "
		if meta.ID == state.session.ID {
			marker = "*"
		}
		name := meta.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s %3d %s\n", marker, i, name)
	}
}

func (state *replState) switchSession(indexArg string) {
	meta, ok := state.sessionAt(indexArg)
	if !ok {
		return
	}
	if err := state.store.SetActiveSession(meta.ID); err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	sess, err := state.store.GetSession(meta.ID)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	state.session = sess
	fmt.Printf("switched to session: %s\n", sessionLabel(sess))
}

func (state *replState) deleteSession(indexArg string) {
	meta, ok := state.sessionAt(indexArg)
	if !ok {
		return
	}
	sess, err := state.store.DeleteSession(meta.ID)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return
	}
	state.session = sess
	fmt.Printf("active session: %s\n", sessionLabel(sess))
}

func (state *replState) sessionAt(indexArg string) (conversation.Meta, bool) {
	index, err := strconv.Atoi(indexArg)
	if err != nil {
		fmt.Println("session index must be a number")
		return conversation.Meta{}, false
	}
	metas, err := state.store.ListSessions()
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return conversation.Meta{}, false
	}
	if index < 0 || index >= len(metas) {
		fmt.Printf("no session %d, store has %d sessions\n", index, len(metas))
		return conversation.Meta{}, false
	}
	return metas[index], true
}

func sessionLabel(sess *conversation.Session) string {
	if sess.Name != "" {
		return sess.Name
	}
	return sess.ID.String()
}
