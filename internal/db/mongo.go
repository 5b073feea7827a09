package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"web_ranker/internal/config"
	"web_ranker/internal/models"
)

type MongoDB struct {
	client    *mongo.Client
	database  *mongo.Database
	documents *mongo.Collection
	ranks     *mongo.Collection
	index     *mongo.Collection
	runs      *mongo.Collection
	logger    zerolog.Logger
}

func NewMongoDB(cfg config.DBConfig, logger zerolog.Logger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)

	d := &MongoDB{
		client:    client,
		database:  db,
		documents: db.Collection(cfg.Collections.Documents),
		ranks:     db.Collection(cfg.Collections.Ranks),
		index:     db.Collection(cfg.Collections.Index),
		runs:      db.Collection(cfg.Collections.Runs),
		logger:    logger,
	}

	d.createIndexes(ctx)

	return d, nil
}

// createIndexes only logs failures; an existing index with other options
// should not stop a ranking run.
func (d *MongoDB) createIndexes(ctx context.Context) {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{d.documents, mongo.IndexModel{
			Keys:    bson.D{{Key: "normalized_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{d.documents, mongo.IndexModel{Keys: bson.D{{Key: "last_scraped", Value: 1}}}},
		{d.ranks, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{d.ranks, mongo.IndexModel{Keys: bson.D{{Key: "score", Value: -1}}}},
		{d.index, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{d.index, mongo.IndexModel{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "body", Value: "text"}}}},
		{d.runs, mongo.IndexModel{Keys: bson.D{{Key: "started_at", Value: -1}}}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			d.logger.Warn().Err(err).Str("collection", idx.coll.Name()).Msg("can't create index")
		}
	}
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// LoadDocuments returns every valid crawled page ordered by normalized URL.
func (d *MongoDB) LoadDocuments(ctx context.Context) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "normalized_url", Value: 1}})

	cursor, err := d.documents.Find(ctx, bson.M{"is_valid": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}

// SaveDocument upserts a crawled page by normalized URL and bumps its scrape counter.
func (d *MongoDB) SaveDocument(doc *models.Document) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"normalized_url": doc.NormalizedURL}

	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var updateDoc bson.M
	if err := bson.Unmarshal(data, &updateDoc); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}

	delete(updateDoc, "scraped_count")
	delete(updateDoc, "first_scraped")
	delete(updateDoc, "_id")

	update := bson.M{
		"$set":         updateDoc,
		"$setOnInsert": bson.M{"first_scraped": doc.FirstScraped},
		"$inc":         bson.M{"scraped_count": 1},
	}

	_, err = d.documents.UpdateOne(ctx, filter, update, opts)
	return err
}

// SaveRanks upserts one record per document name.
func (d *MongoDB) SaveRanks(ctx context.Context, records []models.RankRecord) error {
	if len(records) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": r.Name}).
			SetUpdate(bson.M{"$set": r}).
			SetUpsert(true))
	}

	res, err := d.ranks.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("save ranks: %w", err)
	}
	d.logger.Debug().
		Int64("matched", res.MatchedCount).
		Int64("upserted", res.UpsertedCount).
		Msg("ranks saved")
	return nil
}

// Index replaces the whole index collection with entries.
func (d *MongoDB) Index(ctx context.Context, entries []models.IndexEntry) error {
	if _, err := d.index.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, len(entries))
	for i := range entries {
		docs[i] = entries[i]
	}
	if _, err := d.index.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert index entries: %w", err)
	}
	return nil
}

func (d *MongoDB) SaveRunHistory(ctx context.Context, run *models.RunHistory) error {
	_, err := d.runs.InsertOne(ctx, run)
	if err != nil {
		return fmt.Errorf("save run history: %w", err)
	}
	return nil
}

// GetIndexStats summarizes the index collection: entry count, authority
// spread and how many entries carry duplicates.
func (d *MongoDB) GetIndexStats(ctx context.Context) (map[string]interface{}, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_entries", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avg_authority", Value: bson.D{{Key: "$avg", Value: "$authority"}}},
			{Key: "max_authority", Value: bson.D{{Key: "$max", Value: "$authority"}}},
			{Key: "with_duplicates", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$duplicates", bson.A{}}}}}}, 0}}},
				1, 0,
			}}}}}},
		}}},
	}

	cursor, err := d.index.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []map[string]interface{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return make(map[string]interface{}), nil
	}

	delete(results[0], "_id")
	return results[0], nil
}
