package main

import (
	"fmt"
	"io"
	"strings"

	"portfolio/internal/chat"
	"portfolio/internal/models"
)

// renderer prints controller events as they arrive.
type renderer struct {
	out      io.Writer
	fallback string
	streamed bool
}

func newRenderer(out io.Writer, fallback string) *renderer {
	if fallback == "" {
		fallback = chat.DefaultFallback
	}
	return &renderer{out: out, fallback: fallback}
}

func (r *renderer) observe(ev chat.Event) {
	switch ev.State {
	case chat.Sending:
		r.streamed = false
		fmt.Fprint(r.out, dimStyle.Render("thinking..."))
	case chat.Streaming:
		if ev.Fragment == "" {
			return
		}
		if !r.streamed {
			r.streamed = true
			fmt.Fprint(r.out, "\r\033[K"+assistantTag.Render("assistant> "))
		}
		fmt.Fprint(r.out, ev.Fragment)
	case chat.Idle:
		switch {
		case ev.Failed:
			if !r.streamed {
				fmt.Fprint(r.out, "\r\033[K"+assistantTag.Render("assistant> "))
			} else {
				fmt.Fprintln(r.out)
			}
			fmt.Fprintln(r.out, errorStyle.Render(r.fallback))
		case !r.streamed:
			fmt.Fprint(r.out, "\r\033[K"+assistantTag.Render("assistant> "))
			fmt.Fprintln(r.out)
		default:
			fmt.Fprintln(r.out)
		}
	}
}

// printMessage renders one transcript entry.
func printMessage(out io.Writer, msg models.Message) {
	tag := assistantTag.Render("assistant> ")
	if msg.Role == models.RoleUser {
		tag = userTag.Render("you> ")
	}
	fmt.Fprintln(out, tag+msg.Content)
}

// printHistory shows the pairs the next question will carry.
func printHistory(out io.Writer, pairs []chat.Pair) {
	if len(pairs) == 0 {
		fmt.Fprintln(out, dimStyle.Render("(no completed exchanges yet)"))
		return
	}
	for i, p := range pairs {
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render(fmt.Sprintf("%2d.", i+1)), userTag.Render(p.Prompt))
		fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(p.Response, "\n", "\n    "))
	}
}

const helpText = `commands:
  /history     show the exchanges sent as context
  /transcript  show the whole conversation
  /help        show this help
  /quit        leave`
