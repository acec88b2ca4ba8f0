// Package main is the CLI front-end: it parses mount flags, assembles a
// config.Options, and constructs the engine's Dispatcher, in the style of
// gcsfuse's and rclone's cmd packages. It deliberately stops short of
// performing a real mount syscall — that belongs to the kernel-protocol
// transport this repository assumes as an external collaborator.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gofuse-contrib/inmemfuse/config"
	"github.com/gofuse-contrib/inmemfuse/engine"
	"github.com/gofuse-contrib/inmemfuse/internal/clock"
	"github.com/gofuse-contrib/inmemfuse/internal/groups"
	"github.com/gofuse-contrib/inmemfuse/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "inmemfuse [flags] mount_point",
	Short: "Mount an in-memory, POSIX-semantics filesystem at mount_point",
	Long: `inmemfuse serves an in-memory filesystem over the kernel's userspace
filesystem protocol. It owns the inode tree, permission checks, and request
dispatch; the actual mount/unmount syscalls and request framing are left to
a transport library, so this binary brings the engine up and reports
readiness without mounting anything itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	config.BindFlags(rootCmd.Flags())
}

func runMount(cmd *cobra.Command, args []string) error {
	mountPoint := args[0]

	if err := guardNotMounted(mountPoint); err != nil {
		return err
	}

	v := viper.New()
	opts, err := config.Load(v, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, session := logger.New(os.Stdout, opts.JSONLogs)
	log = log.With("mount_point", mountPoint)

	dispatcher := engine.New(opts, clock.Real{}, groups.ProcStatus{}, log)
	dispatcher.Init(context.Background())

	logger.WithOp(log, "mount").Info("engine ready",
		"session", session, "direct_io", opts.DirectIO, "suid_support", opts.SUIDSupport)

	// The transport library this spec assumes would now hand kernel
	// requests to dispatcher; absent that, Run blocks (and, in debug mode,
	// periodically sweeps node-store invariants) until interrupted.
	return dispatcher.Run(cmd.Context())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
