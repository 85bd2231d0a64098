package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/profile"
)

// Default document store location
const (
	DefaultDatabase   = "flexon"
	DefaultCollection = "jobApplicants"
)

// inserter is the part of *mongo.Collection the sink uses
type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoSink writes a run's records into one collection
type MongoSink struct {
	client  *mongo.Client
	coll    inserter
	timeout time.Duration
}

// MongoOptions locates the collection
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// ConnectMongo connects and pings the server
func ConnectMongo(ctx context.Context, opts MongoOptions) (*MongoSink, error) {
	if opts.URI == "" {
		return nil, failure.Newf(failure.KindConfiguration, "connect mongo", "mongo.uri is not set")
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI).SetServerSelectionTimeout(opts.Timeout))
	if err != nil {
		return nil, failure.Persistence("connect mongo", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, failure.Persistence("ping mongo", err)
	}

	zap.L().Info("connected to mongo",
		zap.String("database", opts.Database),
		zap.String("collection", opts.Collection))

	return &MongoSink{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: opts.Timeout,
	}, nil
}

// Save inserts the records: nothing for an empty slice, one InsertOne for a
// single record and one InsertMany otherwise. It returns the inserted count.
func (m *MongoSink) Save(ctx context.Context, records []profile.Record) (int, error) {
	if len(records) == 0 {
		zap.L().Info("no records to save")
		return 0, nil
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if len(records) == 1 {
		res, err := m.coll.InsertOne(ctx, toDocument(records[0]))
		if err != nil {
			return 0, failure.Persistence("insert record", err)
		}
		zap.L().Info("inserted record", zap.Any("id", res.InsertedID))
		return 1, nil
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = toDocument(r)
	}
	res, err := m.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, failure.Persistence("insert records", err)
	}
	zap.L().Info("inserted records", zap.Int("count", len(res.InsertedIDs)))
	return len(res.InsertedIDs), nil
}

// Close disconnects the client
func (m *MongoSink) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	if err := m.client.Disconnect(ctx); err != nil {
		return eris.Wrap(err, "persistence: disconnect mongo")
	}
	return nil
}

// toDocument keeps the exported field names. A successful lookup is stored
// as a nested document, a failed one as its message.
func toDocument(r profile.Record) bson.D {
	doc := bson.D{
		{Key: "name", Value: r.Name},
		{Key: "profile_url", Value: r.ProfileURL},
		{Key: "linkedin_scraping_dog_info", Value: enrichmentValue(r)},
	}
	if r.Role != "" {
		doc = append(doc, bson.E{Key: "role", Value: r.Role})
	}
	if r.Page > 0 {
		doc = append(doc, bson.E{Key: "page", Value: r.Page})
	}
	if r.RunID != "" {
		doc = append(doc, bson.E{Key: "run_id", Value: r.RunID})
	}
	if !r.ScrapedAt.IsZero() {
		doc = append(doc, bson.E{Key: "scraped_at", Value: r.ScrapedAt.UTC()})
	}
	return doc
}

func enrichmentValue(r profile.Record) interface{} {
	if !r.Enrichment.OK() {
		return r.Enrichment.Failure
	}
	var v interface{}
	if err := json.Unmarshal(r.Enrichment.Payload, &v); err != nil {
		return string(r.Enrichment.Payload)
	}
	return v
}
