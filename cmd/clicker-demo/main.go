package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/tallyops/clickerd/internal/demo"
	"github.com/tallyops/clickerd/pkg/logger"
)

// Default configuration constants.
const (
	defaultJudges  = 3
	defaultWatch   = 10 * time.Second
	defaultTimeout = 10 * time.Second
	defaultRunCap  = 5 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the scoring server")
		judges     = flag.Int("judges", defaultJudges, "Number of SINGLE judge slots to set up")
		project    = flag.String("project", "Demo Cup", "Project name to create")
		group      = flag.String("group", "Qualifiers", "Group name")
		contestant = flag.String("contestant", "Demo Player", "Contestant name")
		watch      = flag.Duration("watch", defaultWatch, "How long to follow the live stream")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		exportFile = flag.String("export", "", "Write the details archive to this file (empty skips export)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunCap)
	defer cancel()

	cfg := &demo.Config{
		BaseURL:    *baseURL,
		Judges:     *judges,
		Project:    *project,
		Group:      *group,
		Contestant: *contestant,
		Watch:      *watch,
		Timeout:    *timeout,
		ExportFile: *exportFile,
	}

	if err := demo.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Demo failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
