package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
)

var exitWords = map[string]bool{"exit": true, "quit": true, "back": true, "thoát": true}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Interactive chat; type exit, quit or back to leave",
		Action: withApp(runChat),
	}
}

func sayCommand() *cli.Command {
	return &cli.Command{
		Name:      "say",
		Usage:     "Process a single message",
		ArgsUsage: "<message>",
		Action: withApp(func(c *cli.Context, a *app) error {
			message := strings.Join(c.Args().Slice(), " ")
			reply, err := a.tracker.ProcessMessage(c.Context, message)
			if err != nil {
				return err
			}
			printReply(c.App.Writer, reply)
			return nil
		}),
	}
}

func runChat(c *cli.Context, a *app) error {
	out := c.App.Writer
	mode := "online (" + a.extractor.ModelName() + ")"
	if a.tracker.Degraded() {
		mode = "offline"
	}
	fmt.Fprintf(out, "Trợ lý chi tiêu - chế độ %s\n", mode)
	fmt.Fprintln(out, "Ví dụ: 'trưa ăn phở 35k', 'xóa phở', 'thống kê hôm nay'. Gõ 'exit' để thoát.")

	return chatLoop(c, a, c.App.Reader, out)
}

func chatLoop(c *cli.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if exitWords[strings.ToLower(line)] {
			return nil
		}
		if line == "" {
			continue
		}

		reply, err := a.tracker.ProcessMessage(c.Context, line)
		if err != nil {
			fmt.Fprintf(out, "Lỗi: %v\n", err)
			continue
		}
		printReply(out, reply)
	}
}
