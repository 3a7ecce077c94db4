// Package profile starts and stops runtime profiling with
// [github.com/pkg/profile].
//
// Profiling is compiled in only with the pprof build tag:
//
//	go build -tags pprof .
//
// Without the tag [Modes] is empty and [Profiler.Start] returns a no-op
// [Stopper].
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     blocking profiling
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap profiling (live allocations)
//   - mem:       memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution tracing
//
// A profile is written to a file in [Profiler.Path] when the returned
// [Stopper] is stopped:
//
//	stop := profile.Profiler{Mode: "cpu", Path: dir, Quiet: true}.Start()
//	defer stop.Stop()
//
// Profiling a template-heavy run, for example checking a large set of
// templates, shows where parse and evaluation time goes:
//
//	go build -tags pprof -o blockcss .
//	./blockcss --pprof-mode=cpu check templates/*.css.tmpl
//	go tool pprof -http=: ~/.cache/blockcss/pprof/cpu.pprof
package profile
