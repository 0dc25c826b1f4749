package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
)

func bsonFromJSON(s string) (bson.Raw, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &d); err != nil {
		return nil, err
	}
	return bson.Marshal(d)
}
