package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"property_id",
			"user_id",
			"user_name",
			"start_date",
			"end_date",
			"adults",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"property_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"adults": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  50,
			},

			"children": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"selected_optional_fees": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"total_cost": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "rejected"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
