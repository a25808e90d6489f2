// Package crontab provides a delayed job scheduler and queue dispatcher
// backed by a shared key-value store.
//
// Callers submit named jobs with an optional future execution time. Jobs due
// in the future are parked in time buckets indexed by due timestamp; jobs due
// now go straight onto a named ready queue. A delay ticker promotes due
// buckets into their queues and a consumer drains the queues, routing each
// job either to a remote HTTP endpoint or to an in-process handler. Failed
// jobs are resubmitted according to their own retry schedule.
//
// # Quick Start
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	reg := job.NewRegistry()
//	job.RegisterDefinition(reg, SendMail)
//
//	eng, err := engine.New(redisstore.New(rdb),
//	    engine.WithRegistry(reg),
//	)
//	go eng.Run(ctx)
//
//	err = eng.Submit(ctx, job.Submission{
//	    Name:  "mailer/send",
//	    Args:  []byte(`{"to":"a@b.com"}`),
//	    Time:  time.Now().Add(time.Minute).Unix(),
//	    Queue: "default",
//	})
//
// # Delivery
//
// Delivery is at-least-once. The store's single-key atomic operations are the
// only coordination between processes; there is no distributed lock.
package crontab
