// Copyright 2018 Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the
// License is located at
//
// http://aws.amazon.com/apache2.0/
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package retry implements back off retry strategy for reconnect web socket connection.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Retryer defines the interface for retry operations.
type Retryer interface {
	Call(ctx context.Context) error
	NextSleepTime(attempt int) time.Duration
}

// RepeatableExponentialRetryer implements exponential backoff retry strategy.
type RepeatableExponentialRetryer struct {
	CallableFunc        func(ctx context.Context) error
	GeometricRatio      float64
	InitialDelayInMilli int
	MaxDelayInMilli     int
	MaxAttempts         int
	// OnRetry is called with the failed attempt number and its error before sleeping. Optional.
	OnRetry func(attempt int, err error)
}

// NextSleepTime calculates the next delay of retry.
func (r *RepeatableExponentialRetryer) NextSleepTime(attempt int) time.Duration {
	return time.Duration(float64(r.InitialDelayInMilli)*math.Pow(r.GeometricRatio, float64(attempt))) * time.Millisecond
}

// Call calls the operation and does exponential retry if error happens.
// MaxAttempts counts retries, so the operation runs at most MaxAttempts+1 times.
// Cancelling ctx stops the retries and returns the last error joined with ctx.Err().
func (r *RepeatableExponentialRetryer) Call(ctx context.Context) error {
	attempt := 0
	failedAttemptsSoFar := 0

	for {
		err := r.CallableFunc(ctx)
		if err == nil || failedAttemptsSoFar == r.MaxAttempts {
			return err
		}

		if r.OnRetry != nil {
			r.OnRetry(failedAttemptsSoFar+1, err)
		}

		sleep := r.NextSleepTime(attempt)
		if int(sleep/time.Millisecond) > r.MaxDelayInMilli {
			attempt = 0
			sleep = r.NextSleepTime(attempt)
		}

		timer := time.NewTimer(sleep)

		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}

		attempt++
		failedAttemptsSoFar++
	}
}
