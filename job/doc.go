// Package job defines the job entity, submissions, name routing, and the
// handler registry.
//
// # Job Entity
//
// A [Job] is the unit of work stored in delay buckets and ready queues. It
// carries the job name, an opaque JSON payload, the queue it belongs to and
// its retry stack: absolute unix timestamps consumed from the tail, one per
// failed attempt. While parked in a delay bucket it also carries its due
// time.
//
// The serialized form keeps the original field names so other producers can
// share the store:
//
//	{"name":"mailer/send","args":{"to":"a@b.com"},"queue":"default","count":[1700000090,1700000030]}
//
// # Names
//
// A name starting with a remote marker (http:// or https:// by default) is a
// remote address. Any other name is parsed by [ParseTarget] as
//
//	<HandlerPath>/<Method>[:Tag]
//
// where Method defaults to "perform" and Tag only keeps names unique for
// cancellation purposes.
//
// # Registry
//
// [Registry] maps handler paths and methods to [HandlerFunc] values. Register
// plain performers with [Registry.Register] or typed definitions with
// [RegisterDefinition]:
//
//	var SendMail = job.NewDefinition("mailer",
//	    func(ctx context.Context, in MailInput) (bool, error) {
//	        return true, mailer.Send(in.To)
//	    },
//	)
//	job.RegisterDefinition(registry, SendMail)
package job
