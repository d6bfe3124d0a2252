package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taskd/internal/client"
	"taskd/pkg/task"
)

func main() {
	args := os.Args[1:]
	flags := parseFlags(args)
	args = positional(args)
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	addr := flags["addr"]
	if addr == "" {
		addr = os.Getenv("TASKD_ADDR")
	}
	if addr == "" {
		addr = "127.0.0.1:7878"
	}
	c := client.New(addr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "list":
		tasks, err := c.List(ctx)
		if err != nil {
			fatal("list tasks: %v", err)
		}
		if flags["format"] == "short" {
			printShortTasks(tasks)
		} else {
			printJSON(tasks)
		}

	case "add":
		if len(args) < 2 {
			fatal("Usage: taskctl add <description>")
		}
		t, err := c.Create(ctx, strings.Join(args[1:], " "))
		if err != nil {
			fatal("create task: %v", err)
		}
		printJSON(t)

	case "done", "undo":
		id := taskID(args)
		completed := args[0] == "done"
		t, err := c.Update(ctx, id, task.UpdateTask{Completed: &completed})
		if err != nil {
			fatal("update task: %v", err)
		}
		printJSON(t)

	case "edit":
		id := taskID(args)
		desc, ok := flags["description"]
		if !ok {
			fatal("--description is required")
		}
		t, err := c.Update(ctx, id, task.UpdateTask{Description: &desc})
		if err != nil {
			fatal("update task: %v", err)
		}
		printJSON(t)

	case "rm":
		t, err := c.Delete(ctx, taskID(args))
		if err != nil {
			fatal("delete task: %v", err)
		}
		printJSON(t)

	default:
		usage()
		os.Exit(1)
	}
}

func taskID(args []string) uint32 {
	if len(args) < 2 {
		fatal("Usage: taskctl %s <id>", args[0])
	}
	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fatal("invalid task id %q", args[1])
	}
	return uint32(n)
}

// positional returns args with --flags removed.
func positional(args []string) []string {
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			out = append(out, arg)
		}
	}
	return out
}

func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if idx := strings.Index(arg, "="); idx >= 0 {
			flags[arg[:idx]] = arg[idx+1:]
		} else {
			flags[arg] = ""
		}
	}
	return flags
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode JSON: %v", err)
	}
}

func printShortTasks(tasks []task.Task) {
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Printf("%4d [%s] %s\n", t.ID, mark, t.Description)
	}
}

func fatal(format string, args ...any) {
	for i, a := range args {
		var se *client.StatusError
		if err, ok := a.(error); ok && errors.As(err, &se) {
			args[i] = se.Message
		}
	}
	fmt.Fprintf(os.Stderr, "taskctl: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: taskctl [--addr=host:port] <command>

Commands:
  list [--format=short]             List all tasks
  add <description>                 Create a task
  done <id>                         Mark a task completed
  undo <id>                         Mark a task not completed
  edit <id> --description=<text>    Change a task's description
  rm <id>                           Delete a task

The server address defaults to $TASKD_ADDR, then 127.0.0.1:7878.`)
}
