// Package bootstrap brings a storefront service from resolved
// configuration to serving requests.
//
// A Variant declares which capabilities a service needs (datastore,
// message broker, message consumption). New turns it into an ordered list
// of startup steps:
//
//	database → migrations → crash-hook → kafka-consumer → http-server
//
// Run executes the steps one at a time, aborting on the first failure and
// stopping whatever already started in reverse order. Once every step is
// up it runs the HTTP serve loop and, when enabled, the message drain loop
// concurrently until the context is canceled or SIGINT/SIGTERM arrives.
//
//	resolved, err := config.Resolve(bootstrap.Catalog().Keys(), config.WithServiceName("catalog"))
//	if err != nil {
//	    return err
//	}
//	app, err := bootstrap.New(bootstrap.Catalog(), resolved, settings)
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
package bootstrap
