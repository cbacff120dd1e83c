package workflow

import (
	"context"
	"go-expense/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *Workflow) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Workflow, error)
	FindDefault(ctx context.Context, companyID primitive.ObjectID) (*Workflow, error)
	ListByCompany(ctx context.Context, companyID primitive.ObjectID) ([]Workflow, error)
}

type WorkflowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewWorkflowRepository(mongodb *database.MongodbDB) WorkflowRepository {
	return &WorkflowRepositoryImpl{
		Collection: mongodb.DB.Collection("workflows"),
	}
}

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, workflow *Workflow) error {
	_, err := r.Collection.InsertOne(ctx, workflow)
	return err
}

func (r *WorkflowRepositoryImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*Workflow, error) {
	var workflow Workflow
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&workflow)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &workflow, nil
}

// FindDefault returns the company's default workflow, nil when none exists
func (r *WorkflowRepositoryImpl) FindDefault(ctx context.Context, companyID primitive.ObjectID) (*Workflow, error) {
	var workflow Workflow
	err := r.Collection.FindOne(ctx, bson.M{"company_id": companyID, "is_default": true}).Decode(&workflow)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &workflow, nil
}

func (r *WorkflowRepositoryImpl) ListByCompany(ctx context.Context, companyID primitive.ObjectID) ([]Workflow, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"company_id": companyID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var workflows []Workflow
	if err = cursor.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}
