package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/durjog/durjog-map/internal/domain"
)

const (
	reportsCollection  = "emergencyreports"
	newsCollection     = "news"
	contactsCollection = "contacts"

	newsListLimit    = 50
	duplicateKeyCode = 11000
)

// Connect opens a client for uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongodriver.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// Store is the MongoDB-backed report source and repository for reports,
// news updates and contact messages.
type Store struct {
	db        *mongodriver.Database
	reports   *mongodriver.Collection
	news      *mongodriver.Collection
	contacts  *mongodriver.Collection
	listLimit int64
	logger    *slog.Logger
}

// NewStore returns a Store over db. ListActive returns at most listLimit reports.
func NewStore(db *mongodriver.Database, listLimit int, logger *slog.Logger) *Store {
	return &Store{
		db:        db,
		reports:   db.Collection(reportsCollection),
		news:      db.Collection(newsCollection),
		contacts:  db.Collection(contactsCollection),
		listLimit: int64(listLimit),
		logger:    logger,
	}
}

// EnsureIndexes creates the indexes the list queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.reports.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create report index: %w", err)
	}
	_, err = s.news.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create news index: %w", err)
	}
	return nil
}

// CheckReadiness pings the primary.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb not reachable: %w", err)
	}
	return nil
}

// ListActive returns the newest active reports, most recent first.
func (s *Store) ListActive(ctx context.Context) ([]domain.EmergencyReport, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(s.listLimit)

	cur, err := s.reports.Find(ctx, bson.M{"status": string(domain.StatusActive)}, opts)
	if err != nil {
		return nil, fmt.Errorf("find active reports: %w", err)
	}
	var docs []reportDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode active reports: %w", err)
	}

	reports := make([]domain.EmergencyReport, 0, len(docs))
	for _, d := range docs {
		reports = append(reports, d.toDomain())
	}
	return reports, nil
}

// Get returns the report with the given id.
func (s *Store) Get(ctx context.Context, id string) (domain.EmergencyReport, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.EmergencyReport{}, domain.ErrReportNotFound
	}
	var doc reportDocument
	err = s.reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return domain.EmergencyReport{}, domain.ErrReportNotFound
	}
	if err != nil {
		return domain.EmergencyReport{}, fmt.Errorf("find report %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// Create validates r, applies write-time defaults and stores it under a new id.
func (s *Store) Create(ctx context.Context, r domain.EmergencyReport) (domain.EmergencyReport, error) {
	r, err := domain.PrepareForStorage(r)
	if err != nil {
		return domain.EmergencyReport{}, err
	}
	doc := toReportDocument(r)
	doc.ID = primitive.NewObjectID()

	if _, err := s.reports.InsertOne(ctx, doc); err != nil {
		return domain.EmergencyReport{}, fmt.Errorf("insert report: %w", err)
	}
	s.logger.Debug("report created", "report_id", doc.ID.Hex(), "type", doc.Type)
	return doc.toDomain(), nil
}

// Update applies patch to the report with the given id and returns the result.
func (s *Store) Update(ctx context.Context, id string, patch domain.ReportPatch) (domain.EmergencyReport, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.EmergencyReport{}, domain.ErrReportNotFound
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return domain.EmergencyReport{}, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc reportDocument
	err = s.reports.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": patchFields(patch)}, opts).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return domain.EmergencyReport{}, domain.ErrReportNotFound
	}
	if err != nil {
		return domain.EmergencyReport{}, fmt.Errorf("update report %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

func patchFields(p domain.ReportPatch) bson.M {
	set := bson.M{}
	if p.Type != nil {
		set["type"] = string(*p.Type)
	}
	if p.Description != nil {
		set["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Urgency != nil {
		set["urgency"] = string(*p.Urgency)
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.Location != nil {
		set["location"] = locationDocument{Latitude: p.Location.Latitude, Longitude: p.Location.Longitude}
	}
	return set
}

// Delete removes the report with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrReportNotFound
	}
	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// InsertBatch stores reports that were already prepared for storage. A report
// id always maps to the same _id (see reportObjectID), so a redelivered batch
// collides on _id; such duplicates count as already stored. It returns the
// number of new documents.
func (s *Store) InsertBatch(ctx context.Context, reports []domain.EmergencyReport) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	docs := make([]any, 0, len(reports))
	for _, r := range reports {
		doc := toReportDocument(r)
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		docs = append(docs, doc)
	}

	res, err := s.reports.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongodriver.BulkWriteException
		if errors.As(err, &bwe) && onlyDuplicates(bwe) {
			s.logger.Info("skipped already stored reports", "duplicates", len(bwe.WriteErrors))
			return len(docs) - len(bwe.WriteErrors), nil
		}
		return 0, fmt.Errorf("insert report batch: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func onlyDuplicates(bwe mongodriver.BulkWriteException) bool {
	if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return false
		}
	}
	return true
}

// ListNews returns the newest news updates first.
func (s *Store) ListNews(ctx context.Context) ([]domain.News, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(newsListLimit)

	cur, err := s.news.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find news: %w", err)
	}
	var docs []newsDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}

	news := make([]domain.News, 0, len(docs))
	for _, d := range docs {
		news = append(news, d.toDomain())
	}
	return news, nil
}

// CreateNews stores a news update.
func (s *Store) CreateNews(ctx context.Context, n domain.News) (domain.News, error) {
	if err := n.Validate(); err != nil {
		return domain.News{}, err
	}
	now := domain.Now()
	doc := newsDocument{
		ID:        primitive.NewObjectID(),
		Title:     n.Title,
		Content:   n.Content,
		Link:      n.Link,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.news.InsertOne(ctx, doc); err != nil {
		return domain.News{}, fmt.Errorf("insert news: %w", err)
	}
	return doc.toDomain(), nil
}

// SaveContact stores a contact form message.
func (s *Store) SaveContact(ctx context.Context, m domain.ContactMessage) (domain.ContactMessage, error) {
	if err := m.Validate(); err != nil {
		return domain.ContactMessage{}, err
	}
	doc := contactDocument{
		ID:        primitive.NewObjectID(),
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		CreatedAt: domain.Now(),
	}
	if _, err := s.contacts.InsertOne(ctx, doc); err != nil {
		return domain.ContactMessage{}, fmt.Errorf("insert contact message: %w", err)
	}
	m.ID = doc.ID.Hex()
	m.CreatedAt = doc.CreatedAt
	return m, nil
}
