// Package mongostore implements notifications.Storage on a MongoDB collection
// using the official v2 driver.
//
// Each notification is one document keyed by its id. SetCache runs an
// update pipeline with $ifNull inside FindOneAndUpdate, so the first stored
// presentation value wins even when several processes resolve concurrently.
//
// # Usage
//
//	client, err := mongostore.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	store := mongostore.NewStorage(client.Database(cfg.Database).Collection(cfg.Collection))
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//
// Connect retries failed connections cfg.RetryAttempts times, which helps
// when the service starts before the database is reachable.
package mongostore
