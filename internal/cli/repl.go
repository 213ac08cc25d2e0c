package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/oipromot/office-optimizer/internal/session"
)

// repl drives one interactive conversation over a line-based reader.
type repl struct {
	mgr *session.Manager
	in  io.Reader
	out io.Writer
}

func newREPL(opt session.RequirementOptimizer, in io.Reader, out io.Writer) *repl {
	return &repl{
		mgr: session.NewManager(opt),
		in:  in,
		out: out,
	}
}

func isQuitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

func isResetCommand(input string) bool {
	lower := strings.ToLower(input)
	return lower == "/n" || lower == "n"
}

// run reads lines until quit or EOF. Free text is routed by session status:
// a fresh or errored session treats it as a new requirement, a session
// waiting for feedback treats it as refinement input.
func (r *repl) run() error {
	ctx := context.Background()

	fmt.Fprintln(r.out, "🎯 交互式需求优化器")
	fmt.Fprintln(r.out, "通过确认流程转换用户输入")
	fmt.Fprintln(r.out, "命令: 'quit' 退出, '/n' 或 'n' 开始新对话, Ctrl+C 快速退出")
	fmt.Fprintln(r.out)

	scanner := bufio.NewScanner(r.in)
	for {
		if r.mgr.Status() == session.StatusWaitingFeedback {
			fmt.Fprint(r.out, "您的反馈: ")
		} else {
			fmt.Fprint(r.out, "请输入您的需求: ")
		}

		if !scanner.Scan() {
			fmt.Fprintln(r.out, "\n再见!")
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())

		if isQuitCommand(input) {
			fmt.Fprintln(r.out, "再见!")
			return nil
		}

		if isResetCommand(input) {
			r.mgr.Reset()
			fmt.Fprintf(r.out, "✨ 开始新对话\n\n")
			continue
		}

		if input == "" {
			continue
		}

		if r.mgr.Status() != session.StatusWaitingFeedback {
			fmt.Fprintln(r.out, "处理中...")
		}
		r.display(r.mgr.Submit(ctx, input))
	}
}

// display renders one envelope the way the conversation flow expects:
// answers come with timing and follow-up options, errors with recovery hints.
func (r *repl) display(env session.Envelope) {
	switch env.Type {
	case session.TypeError:
		fmt.Fprintf(r.out, "\n❌ %s\n", warning(env.Content))
		if env.ResponseTime > 0 {
			fmt.Fprintf(r.out, "⏱️ 响应时间: %.2fs\n", env.ResponseTime)
		}
		if env.ErrorType != "" {
			fmt.Fprintf(r.out, "🔍 错误类型: %s\n", env.ErrorType)
		}
		if env.ErrorSuggestion != "" {
			fmt.Fprintf(r.out, "💡 %s\n", env.ErrorSuggestion)
		}
		fmt.Fprintln(r.out, "\n🔄 您可以:")
		fmt.Fprintln(r.out, "  1. 检查网络连接和配置")
		fmt.Fprintln(r.out, "  2. 重新输入需求")
		fmt.Fprintln(r.out, "  3. 输入 '/n' 开始新对话")
		fmt.Fprintln(r.out)

	case session.TypeAIResponse:
		fmt.Fprintf(r.out, "\n🤖 AI回复: %s\n", success(env.Content))
		r.displayMetadata(env)
		r.displayOptions()

	case session.TypeAIResponseRefined:
		fmt.Fprintf(r.out, "\n🤖 AI调整后回复: %s\n", success(env.Content))
		r.displayMetadata(env)
		r.displayOptions()

	case session.TypeNewConversation:
		fmt.Fprintf(r.out, "\n✨ %s\n\n", env.Content)
	}
}

func (r *repl) displayMetadata(env session.Envelope) {
	if env.ResponseTime > 0 {
		modeText := ""
		if env.Mode != "" {
			modeText = fmt.Sprintf(" (%s)", dim(env.Mode))
		}
		fmt.Fprintf(r.out, "⏱️ 响应时间: %.2fs%s\n", env.ResponseTime, modeText)
	}
}

func (r *repl) displayOptions() {
	fmt.Fprintln(r.out, "\n请选择:")
	fmt.Fprintln(r.out, "1. 输入反馈意见进行调整")
	fmt.Fprintln(r.out, "2. 输入 '/n' 或 'n' 开始新对话")
	fmt.Fprintln(r.out)
}
