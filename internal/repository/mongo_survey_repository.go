package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/nps-insights/internal/repository/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultMongoDatabase = "NPSResponsesDB"

// MongoSurveyRepository keeps one collection per survey.
type MongoSurveyRepository struct {
	db *mongo.Database
}

func NewMongoSurveyRepository(db *mongo.Database) *MongoSurveyRepository {
	return &MongoSurveyRepository{db: db}
}

// ListResponses returns every document of the survey's collection in insertion order.
// Documents are decoded loosely since the collection may hold hand-imported data.
func (m *MongoSurveyRepository) ListResponses(ctx context.Context, survey string) ([]models.SurveyDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.db.Collection(survey).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", survey, err)
	}
	defer cur.Close(ctx)

	var results []models.SurveyDocument
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", survey, err)
		}
		results = append(results, documentFromBSON(raw))
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", survey, err)
	}
	return results, nil
}

// InsertResponses writes docs into the survey's collection with one InsertMany.
func (m *MongoSurveyRepository) InsertResponses(ctx context.Context, survey string, docs []models.SurveyDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	batch := make([]any, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}

	res, err := m.db.Collection(survey).InsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", survey, err)
	}
	return len(res.InsertedIDs), nil
}

func documentFromBSON(raw bson.M) models.SurveyDocument {
	d := models.SurveyDocument{
		Score:     firstOf(raw, "score", "nps-score"),
		Review:    stringOf(raw["review"]),
		Sentiment: stringOf(raw["sentiment"]),
	}

	switch id := raw["_id"].(type) {
	case primitive.ObjectID:
		d.ID = id.Hex()
	case nil:
	default:
		d.ID = fmt.Sprint(id)
	}

	switch v := raw["date"].(type) {
	case primitive.DateTime:
		d.Date = v.Time().UTC().Format(time.RFC3339)
	case time.Time:
		d.Date = v.UTC().Format(time.RFC3339)
	default:
		d.Date = stringOf(v)
	}

	switch v := firstOf(raw, "aspects", "checkbox_fts").(type) {
	case primitive.A:
		for _, item := range v {
			if s := strings.TrimSpace(stringOf(item)); s != "" {
				d.Aspects = append(d.Aspects, s)
			}
		}
	case string:
		d.SetAspectsFromString(v)
	}

	switch v := raw["rebuy"].(type) {
	case bool:
		d.Rebuy = &v
	case string:
		d.Rebuy, _ = models.ParseRebuy(v)
	case int32, int64, float64:
		d.Rebuy, _ = models.ParseRebuy(fmt.Sprint(v))
	}

	return d
}

func firstOf(raw bson.M, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int32:
		return strconv.Itoa(int(s))
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprint(s)
	}
}
