// start.go — launch the bridge and every active agent as separate processes.
//
// Usage:
//
//	agentchat start           — run in the foreground, Ctrl+C stops everything
//	agentchat start --detach  — spawn in the background and record PIDs
//	agentchat start --memory  — run everything in this process, no Redis
//	agentchat stop            — stop a detached launch
//	agentchat ps              — list running processes of a detached launch
//
// The bridge listens on gateway.port; agent i (in agents.yml order) on
// gateway.agentBasePort+i.
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dayuer/agentchat/internal/container"
	"github.com/dayuer/agentchat/internal/utils"
)

const (
	pidFileName  = "agentchat.pid"
	bridgeWarmup = 3 * time.Second
	agentStagger = 2 * time.Second
	stopTimeout  = 5 * time.Second
)

var (
	startDetach bool
	startMemory bool
)

func init() {
	startCmd.Flags().BoolVarP(&startDetach, "detach", "d", false, "Run in the background and return")
	startCmd.Flags().BoolVar(&startMemory, "memory", false, "Run the bridge and all agents in this process on in-memory backends")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(psCmd)
}

// --- PID file helpers (one PID per line) ---

func pidFilePath() string {
	return filepath.Join(utils.GetDataPath(), pidFileName)
}

func writePIDs(pids []int) error {
	lines := make([]string, len(pids))
	for i, p := range pids {
		lines[i] = strconv.Itoa(p)
	}
	return os.WriteFile(pidFilePath(), []byte(strings.Join(lines, "\n")), 0644)
}

func readPIDs() ([]int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, l := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(l))
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func removePID() {
	os.Remove(pidFilePath())
}

// isRunning checks if a process with the given PID is alive.
func isRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// getRunningPIDs returns the recorded PIDs that are still alive.
func getRunningPIDs() []int {
	pids, err := readPIDs()
	if err != nil {
		return nil
	}
	var alive []int
	for _, pid := range pids {
		if isRunning(pid) {
			alive = append(alive, pid)
		}
	}
	if len(alive) == 0 {
		removePID()
	}
	return alive
}

// --- Process helpers ---

// child is one launched process.
type child struct {
	label string
	port  int
	cmd   *exec.Cmd
}

// subArgs prefixes args with the --config flag when one was given.
func subArgs(args ...string) []string {
	if configPath != "" {
		return append([]string{"--config", configPath}, args...)
	}
	return args
}

// spawn starts exe with args. Detached children get their own session and
// write to logFile; foreground children share this terminal.
func spawn(exe string, args []string, logFile string, detach bool) (*exec.Cmd, error) {
	proc := exec.Command(exe, args...)
	proc.Env = os.Environ()

	if !detach {
		proc.Stdout = os.Stdout
		proc.Stderr = os.Stderr
		return proc, proc.Start()
	}

	out, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	defer out.Close()
	proc.Stdout = out
	proc.Stderr = out
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return proc, proc.Start()
}

// stopAll sends SIGTERM, waits up to timeout, then kills what is left.
func stopAll(pids []int, timeout time.Duration) {
	for _, pid := range pids {
		if proc, err := os.FindProcess(pid); err == nil {
			proc.Signal(syscall.SIGTERM)
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(alive(pids)) == 0 {
			return
		}
		time.Sleep(250 * time.Millisecond)
	}

	for _, pid := range alive(pids) {
		if proc, err := os.FindProcess(pid); err == nil {
			proc.Signal(syscall.SIGKILL)
		}
	}
}

func alive(pids []int) []int {
	var out []int
	for _, pid := range pids {
		if isRunning(pid) {
			out = append(out, pid)
		}
	}
	return out
}

func childPIDs(children []child) []int {
	pids := make([]int, len(children))
	for i, c := range children {
		pids[i] = c.cmd.Process.Pid
	}
	return pids
}

// --- Commands ---

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bridge and every active agent",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	if startMemory {
		if startDetach {
			return fmt.Errorf("--memory runs in this process and cannot be detached")
		}
		return runInProcess()
	}
	if pids := getRunningPIDs(); len(pids) > 0 {
		return fmt.Errorf("agentchat is already running (PIDs: %v)", pids)
	}

	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg.Agents.RegistryFile)
	if err != nil {
		return err
	}
	active := reg.ActiveAgents()
	fmt.Printf("📋 Found %d active agents in %s\n", len(active), cfg.Agents.RegistryFile)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot find executable: %w", err)
	}
	logDir := utils.GetLogsPath()

	var children []child
	launch := func(label string, port int, logName string, args []string) error {
		logFile := filepath.Join(logDir, logName)
		proc, err := spawn(exe, subArgs(args...), logFile, startDetach)
		if err != nil {
			if len(children) > 0 {
				fmt.Printf("⚠️ %s failed, stopping %d started processes...\n", label, len(children))
				stopAll(childPIDs(children), stopTimeout)
			}
			return fmt.Errorf("%s (port %d): %w", label, port, err)
		}
		children = append(children, child{label: label, port: port, cmd: proc})
		fmt.Printf("   ✅ %s → port %d (PID %d)\n", label, port, proc.Process.Pid)
		return nil
	}

	if err := launch(cfg.Chat.RelayName, cfg.Gateway.Port, "bridge.log",
		[]string{"serve", "--port", strconv.Itoa(cfg.Gateway.Port)}); err != nil {
		return err
	}
	if !sleepCtx(ctx, bridgeWarmup) {
		stopAll(childPIDs(children), stopTimeout)
		return nil
	}

	for i, a := range active {
		port := cfg.Gateway.AgentBasePort + i
		if err := launch(a.Name, port, "agent-"+utils.SafeFilename(a.Key)+".log",
			[]string{"agent", "--name", a.Key, "--port", strconv.Itoa(port)}); err != nil {
			return err
		}
		if i < len(active)-1 && !sleepCtx(ctx, agentStagger) {
			stopAll(childPIDs(children), stopTimeout)
			return nil
		}
	}

	if startDetach {
		pids := childPIDs(children)
		for _, c := range children {
			c.cmd.Process.Release()
		}
		if err := writePIDs(pids); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		fmt.Printf("\n✅ Started %d processes\n", len(children))
		fmt.Printf("   PID file: %s\n", pidFilePath())
		fmt.Printf("   Logs: %s\n", logDir)
		return nil
	}

	return superviseForeground(ctx, children)
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// superviseForeground waits for Ctrl+C, reporting children that exit on
// their own, then stops everything.
func superviseForeground(ctx context.Context, children []child) error {
	exited := make(chan child, len(children))
	for _, c := range children {
		go func(c child) {
			c.cmd.Wait()
			exited <- c
		}(c)
	}

	fmt.Println("\nPress Ctrl+C to stop all agents...")
	remaining := len(children)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			fmt.Println("\n🛑 Stopping all agents...")
			stopAll(childPIDs(children), stopTimeout)
			fmt.Println("All agents stopped.")
			return nil
		case c := <-exited:
			remaining--
			fmt.Printf("⚠️ %s (port %d) exited: %v\n", c.label, c.port, c.cmd.ProcessState)
		}
	}
	return fmt.Errorf("all processes exited")
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a detached agentchat launch",
	RunE: func(cmd *cobra.Command, args []string) error {
		pids := getRunningPIDs()
		if len(pids) == 0 {
			fmt.Println("ℹ️ agentchat is not running")
			return nil
		}
		fmt.Printf("🛑 Stopping %d process(es) (PIDs: %v)...\n", len(pids), pids)
		stopAll(pids, stopTimeout)
		removePID()
		fmt.Println("✅ All processes stopped")
		return nil
	},
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List processes of a detached agentchat launch",
	Run: func(cmd *cobra.Command, args []string) {
		pids := getRunningPIDs()
		if len(pids) == 0 {
			fmt.Println("⚫ agentchat is not running")
			return
		}
		fmt.Printf("✅ agentchat: %d process(es) running\n", len(pids))
		for _, pid := range pids {
			fmt.Printf("   PID %d ✅\n", pid)
		}
		fmt.Printf("   PID file: %s\n", pidFilePath())

		bridgeLog := filepath.Join(utils.GetLogsPath(), "bridge.log")
		if data, err := os.ReadFile(bridgeLog); err == nil {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			start := len(lines) - 5
			if start < 0 {
				start = 0
			}
			fmt.Println("   Last bridge log lines:")
			for _, l := range lines[start:] {
				fmt.Printf("     %s\n", l)
			}
		}
	},
}

// runInProcess runs the bridge and every active agent as goroutines
// sharing an in-memory bus and history.
func runInProcess() error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := container.NewInMemory(cfg, time.Now)
	if err != nil {
		return err
	}
	defer c.Close()

	g, gctx := errgroup.WithContext(ctx)

	br, srv := c.Bridge()
	g.Go(func() error { return br.Egress(gctx) })
	g.Go(func() error { return srv.Start(gctx) })
	log.Printf("[Start] ✅ %s → port %d (in-process)", br.RelayName, cfg.Gateway.Port)

	for i, spec := range c.Registry().ActiveAgents() {
		port := cfg.Gateway.AgentBasePort + i
		a, err := c.Agent(spec.Key, port)
		if err != nil {
			return err
		}
		g.Go(func() error { return a.Loop.Run(gctx) })
		g.Go(func() error { return a.Server.Start(gctx) })
		log.Printf("[Start] ✅ %s → port %d (in-process)", a.Spec.Name, port)
	}

	fmt.Printf("\nChannel %s is in memory; nothing is persisted. Press Ctrl+C to stop.\n", c.Channel())
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("All agents stopped.")
	return nil
}
