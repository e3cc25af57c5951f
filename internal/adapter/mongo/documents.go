package mongo

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/durjog/durjog-map/internal/domain"
)

// reportDocument is the stored shape of an emergency report. Documents written
// by older clients may carry lat/lng instead of latitude/longitude and the
// "false alarm" status spelling; both are folded on read.
type reportDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Type        string             `bson:"type"`
	Description string             `bson:"description,omitempty"`
	Urgency     string             `bson:"urgency,omitempty"`
	Severity    string             `bson:"severity,omitempty"`
	Location    locationDocument   `bson:"location"`
	UserID      string             `bson:"userId,omitempty"`
	Timestamp   time.Time          `bson:"timestamp"`
	Status      string             `bson:"status"`
}

type locationDocument struct {
	Latitude  *float64 `bson:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty"`
	Lat       *float64 `bson:"lat,omitempty"`
	Lng       *float64 `bson:"lng,omitempty"`
}

func toReportDocument(r domain.EmergencyReport) reportDocument {
	doc := reportDocument{
		Type:        string(r.Type),
		Description: r.Description,
		Urgency:     string(r.Urgency),
		Location: locationDocument{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
		},
		UserID:    r.UserID,
		Timestamp: r.Timestamp,
		Status:    string(r.Status),
	}
	doc.ID = reportObjectID(r.ID)
	return doc
}

// reportObjectID maps a report id to its _id. Hex ids are used as they are.
// Other ids, such as upstream message keys, get a name-based ObjectID so the
// same id always lands on the same document. An empty id yields the zero id.
func reportObjectID(id string) primitive.ObjectID {
	if id == "" {
		return primitive.NilObjectID
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	var oid primitive.ObjectID
	name := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	copy(oid[:], name[:len(oid)])
	return oid
}

func (d reportDocument) toDomain() domain.EmergencyReport {
	urgency := d.Urgency
	if urgency == "" {
		urgency = d.Severity
	}
	loc := domain.Location{Latitude: d.Location.Latitude, Longitude: d.Location.Longitude}
	if loc.Latitude == nil {
		loc.Latitude = d.Location.Lat
	}
	if loc.Longitude == nil {
		loc.Longitude = d.Location.Lng
	}
	return domain.EmergencyReport{
		ID:          d.ID.Hex(),
		Type:        domain.ReportType(d.Type),
		Location:    loc,
		Urgency:     domain.Urgency(urgency),
		Description: d.Description,
		UserID:      d.UserID,
		Timestamp:   d.Timestamp.UTC(),
		Status:      domain.NormalizeStatus(d.Status),
	}
}

type newsDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Link      string             `bson:"link,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d newsDocument) toDomain() domain.News {
	return domain.News{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		Link:      d.Link,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type contactDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Message   string             `bson:"message"`
	CreatedAt time.Time          `bson:"createdAt"`
}
