// Package chain composes prompt, LLM, and parsing steps into runnable
// pipelines. Runnables pass a string-keyed map between steps and can be
// combined sequentially, in parallel, or conditionally.
package chain

import (
	"context"
	"fmt"
	"sync"
)

// Runnable is a single composable pipeline step.
type Runnable interface {
	// Invoke runs the step with the given input values and returns its
	// output values.
	Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}

// Lambda adapts a function into a Runnable.
type Lambda func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)

// Invoke runs the wrapped function
func (l Lambda) Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	return l(ctx, input)
}

// Passthrough copies its input and merges in the extra values. Use it to
// thread constants or rename keys mid-pipeline.
func Passthrough(extra map[string]interface{}) Runnable {
	return Lambda(func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		output := make(map[string]interface{}, len(input)+len(extra))
		for k, v := range input {
			output[k] = v
		}
		for k, v := range extra {
			output[k] = v
		}
		return output, nil
	})
}

type sequential struct {
	steps []Runnable
}

// Seq chains runnables left to right, feeding each step's output into the
// next.
func Seq(steps ...Runnable) Runnable {
	return &sequential{steps: steps}
}

func (s *sequential) Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	current := input
	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := step.Invoke(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("chain step %d failed: %w", i, err)
		}
		current = output
	}
	return current, nil
}

type parallel struct {
	branches map[string]Runnable
}

// Parallel runs all branches concurrently on the same input. The result maps
// each branch name to that branch's output. The first branch error fails the
// whole invocation.
func Parallel(branches map[string]Runnable) Runnable {
	return &parallel{branches: branches}
}

func (p *parallel) Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	output := make(map[string]interface{}, len(p.branches))

	for name, branch := range p.branches {
		wg.Add(1)
		go func(name string, branch Runnable) {
			defer wg.Done()

			result, err := branch.Invoke(ctx, input)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("chain branch %q failed: %w", name, err)
					cancel()
				}
				return
			}
			output[name] = result
		}(name, branch)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return output, nil
}

type branch struct {
	condition func(ctx context.Context, input map[string]interface{}) bool
	then      Runnable
	otherwise Runnable
}

// Branch routes the input to then or otherwise based on the condition. A nil
// otherwise passes the input through unchanged.
func Branch(condition func(ctx context.Context, input map[string]interface{}) bool, then, otherwise Runnable) Runnable {
	return &branch{condition: condition, then: then, otherwise: otherwise}
}

func (b *branch) Invoke(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if b.condition(ctx, input) {
		return b.then.Invoke(ctx, input)
	}
	if b.otherwise == nil {
		return input, nil
	}
	return b.otherwise.Invoke(ctx, input)
}
