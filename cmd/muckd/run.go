package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fuzzball-muck/muckcore/boundary"
	"github.com/fuzzball-muck/muckcore/internal/config"
	"github.com/fuzzball-muck/muckcore/internal/telemetry"
	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/interp/primitive"
	"github.com/fuzzball-muck/muckcore/sched"
	"github.com/fuzzball-muck/muckcore/store"
)

const engineVersion = "muckcore 1.0"

// consoleSink is the Sink boundary.Notifier writes through when run
// outside of a real network front-end (spec.md §1 treats the
// line-oriented front-end as an external collaborator); it simply
// prints "descr: line" to stdout, standing in for whatever process
// embeds muckd as the poll_output consumer.
type consoleSink struct{}

func (consoleSink) Send(descr int, line string) {
	fmt.Printf("[%d] %s\n", descr, line)
}

// newRunCmd implements `muckd run`: the outer driver loop of spec.md
// §5 — tick the scheduler, run whatever frames it hands back for up to
// their instruction slice, and write a full dump every dump_interval.
// It owns process lifetime: SIGINT/SIGTERM trigger one last dump before
// exit, matching the ".PANIC" / graceful-shutdown split of spec.md §6.
func newRunCmd(dataDir *string) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine's scheduler-driven tick loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := newLayout(*dataDir)
			clock := func() int64 { return time.Now().Unix() }

			level := telemetry.Basic
			if logLevel == "detailed" {
				level = telemetry.Detailed
			} else if logLevel == "off" {
				level = telemetry.Off
			}
			log := telemetry.NewSink(os.Stderr, level)

			cfg := config.DefaultRegistry()
			if err := cfg.LoadFile(l.parmfile()); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("loading %s: %w", l.parmfile(), err)
			}
			watcher, err := config.WatchFile(cfg, l.parmfile())
			if err == nil {
				defer watcher.Close()
				go func() {
					for werr := range watcher.Errs {
						log.Basicf("parmfile reload failed: %v", werr)
					}
				}()
			}

			tbl, err := loadWorld(l, clock)
			if err != nil {
				return err
			}
			log.Basicf("loaded %d objects from %s", len(tbl.All()), l.input())

			maxInstr, _ := cfg.Get("max_instr_count", 4)
			slice, _ := cfg.Get("instr_slice", 4)
			globalProcs, _ := cfg.Get("max_process_limit", 4)
			ownerProcs, _ := cfg.Get("max_plyr_processes", 4)

			queue := sched.NewQueue(int(globalProcs.Int), int(ownerProcs.Int))
			driver := sched.NewDriver(queue, clock)

			descs := boundary.NewTable()
			notifier := boundary.NewNotifier(tbl, descs, consoleSink{})
			notifier.Delayer = driver
			mcpReg := boundary.NewRegistry()
			mcpReg.RegisterPackage("mcp-negotiate", "1.0", "2.1")
			mcpReg.RegisterPackage("mcp-negotiate-can", "1.0", "1.0")
			tunables := boundary.NewTunables(cfg)
			if tunables.Bool("enable_prefix", 4) {
				log.Detailedf("enable_prefix is set")
			}

			reg := interp.NewRegistry(driver, notifier)
			primitive.Register(reg)
			primitive.SetVersion(engineVersion)
			primitive.SetConfig(cfg)
			primitive.SetDescriptors(descs)
			primitive.SetMpiDispatcher(notifier)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			dumpEvery := time.Duration(mustDumpInterval(cfg)) * time.Second
			dumpTimer := time.NewTicker(dumpEvery)
			defer dumpTimer.Stop()

			tick := time.NewTicker(time.Second)
			defer tick.Stop()

			log.Basicf("engine running (slice=%d max_instr=%d)", slice.Int, maxInstr.Int)
			for {
				select {
				case <-sig:
					log.Basicf("shutdown requested, writing final dump")
					return writeFinalDump(l, tbl)
				case <-dumpTimer.C:
					if err := writeFinalDump(l, tbl); err != nil {
						log.Basicf("periodic dump failed: %v", err)
					}
				case <-tick.C:
					runTick(clock(), queue, reg, int(slice.Int), maxInstr.Int, log)
				}
			}
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "basic", "telemetry level: off, basic, detailed")
	return cmd
}

func mustDumpInterval(cfg *config.Registry) int64 {
	v, err := cfg.Get("dump_interval", 4)
	if err != nil || v.Span.Seconds <= 0 {
		return 3600
	}
	return v.Span.Seconds
}

// runTick drains every scheduler entry due at now (spec.md §4.F
// "tick(now)"). A due MufDelayed entry (a SLEEP wakeup or a FORK's
// child start) resumes its carried frame for up to its instruction
// slice; a due MufTimer delivers TIMER.<id> into its frame's pending
// event queue without resuming it, since TIMER_START is not itself a
// suspension point (spec.md §5). When resuming a frame suspends it
// again, the suspending primitive (SLEEP/READ/EVENT_WAITFOR/WATCHPID)
// has already enqueued the entry that will wake it next, so runTick has
// nothing further to do.
func runTick(now int64, q *sched.Queue, reg *interp.Registry, sliceSize int, maxInstr int64, log *telemetry.Sink) {
	q.Tick(now, func(e *sched.Entry) {
		switch e.Kind {
		case sched.KindMufTimer:
			f, ok := e.Frame.(*interp.Frame)
			if !ok || f == nil {
				return
			}
			f.PendingEvents = append(f.PendingEvents, interp.Event{Name: "TIMER." + e.TimerID})
		case sched.KindMufDelayed:
			f, ok := e.Frame.(*interp.Frame)
			if !ok || f == nil {
				return
			}
			result, err := interp.Run(f, reg, sliceSize, maxInstr)
			if err != nil {
				log.Basicf("pid %d aborted: %v", e.Pid, err)
				return
			}
			_ = result // suspension already re-queued itself via Sleep/Read/EventWaitFor/WATCHPID
		default:
			// DelayedCommand and MpiDelayed dispatch through the front-end
			// and MPI collaborators respectively (spec.md §1), not through
			// the bytecode interpreter; cmd/muckd has no command-verb
			// dispatcher of its own to hand them to.
		}
	})
}

func writeFinalDump(l layout, tbl *store.Table) error {
	out, err := os.Create(l.output())
	if err != nil {
		return err
	}
	defer out.Close()
	if err := store.WriteFullDump(tbl, out); err != nil {
		return err
	}
	return rotateDump(l)
}
