// Package memory keeps large image decodes from pushing the process past its
// container memory limit.
//
// ApplyBudget splits a Kubernetes Downward API limit between the Go heap and
// libvips, which decodes and resizes outside the Go heap:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// The heap gets MEMORY_RATIO of the limit (0.85), lowered further so that
// VIPS_MEMORY_RESERVE bytes stay free (48 MiB per libvips worker). An explicit
// GOMEMLIMIT always wins.
//
// Monitor samples the heap and pauses generation between source images once
// usage crosses the pause mark, resuming below the resume mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	for _, item := range changes {
//	    if err := monitor.WaitIfPaused(ctx); err != nil {
//	        return err
//	    }
//	    generate(item)
//	}
package memory
