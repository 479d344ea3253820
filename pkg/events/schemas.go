package events

// DefaultSchemaRegistry returns a registry pre-loaded with the FitViz
// domain event catalogue.
func DefaultSchemaRegistry() *SchemaRegistry {
	r := NewSchemaRegistry()

	r.Register("workout.created", Schema{
		Required: map[string]FieldType{
			"workout_id": FieldString,
			"title":      FieldString,
			"created_by": FieldString,
		},
		Optional: map[string]FieldType{
			"description":      FieldString,
			"duration_minutes": FieldNumber,
		},
	})
	r.Register("workout.updated", Schema{
		Required: map[string]FieldType{
			"workout_id": FieldString,
			"updated_by": FieldString,
		},
		Optional: map[string]FieldType{
			"title":            FieldString,
			"description":      FieldString,
			"duration_minutes": FieldNumber,
		},
	})
	r.Register("workout.deleted", Schema{
		Required: map[string]FieldType{
			"workout_id": FieldString,
			"deleted_by": FieldString,
		},
	})

	r.Register("booking.created", Schema{
		Required: map[string]FieldType{
			"booking_id": FieldString,
			"user_id":    FieldString,
			"class_id":   FieldString,
			"class_name": FieldString,
		},
		Optional: map[string]FieldType{
			"scheduled_time": FieldTimestamp,
			"location":       FieldString,
		},
	})
	r.Register("booking.confirmed", Schema{
		Required: map[string]FieldType{
			"booking_id":     FieldString,
			"user_id":        FieldString,
			"class_id":       FieldString,
			"class_name":     FieldString,
			"scheduled_time": FieldTimestamp,
		},
		Optional: map[string]FieldType{
			"location": FieldString,
		},
	})
	r.Register("booking.cancelled", Schema{
		Required: map[string]FieldType{
			"booking_id": FieldString,
			"user_id":    FieldString,
			"class_id":   FieldString,
			"class_name": FieldString,
		},
		Optional: map[string]FieldType{
			"cancellation_reason": FieldString,
		},
	})

	r.Register("membership.created", Schema{
		Required: map[string]FieldType{
			"membership_id": FieldString,
			"user_id":       FieldString,
			"plan_name":     FieldString,
			"start_date":    FieldTimestamp,
			"end_date":      FieldTimestamp,
			"price":         FieldNumber,
		},
	})
	r.Register("membership.expired", Schema{
		Required: map[string]FieldType{
			"membership_id": FieldString,
			"user_id":       FieldString,
			"plan_name":     FieldString,
			"expired_date":  FieldTimestamp,
		},
	})

	r.Register("payment.completed", Schema{
		Required: map[string]FieldType{
			"payment_id":     FieldString,
			"user_id":        FieldString,
			"amount":         FieldNumber,
			"payment_method": FieldString,
			"reference_type": FieldString,
			"reference_id":   FieldString,
		},
		Optional: map[string]FieldType{
			"currency": FieldString,
		},
	})
	r.Register("payment.failed", Schema{
		Required: map[string]FieldType{
			"payment_id":     FieldString,
			"user_id":        FieldString,
			"amount":         FieldNumber,
			"failure_reason": FieldString,
			"reference_type": FieldString,
			"reference_id":   FieldString,
		},
		Optional: map[string]FieldType{
			"currency": FieldString,
		},
	})

	r.Register("class.created", Schema{
		Required: map[string]FieldType{
			"class_id":   FieldString,
			"class_name": FieldString,
			"trainer_id": FieldString,
			"created_by": FieldString,
		},
		Optional: map[string]FieldType{
			"max_slots":        FieldNumber,
			"price":            FieldNumber,
			"occurrence_count": FieldNumber,
		},
	})
	r.Register("class.updated", Schema{
		Required: map[string]FieldType{
			"class_id":   FieldString,
			"class_name": FieldString,
			"updated_by": FieldString,
		},
		Optional: map[string]FieldType{
			"changes": FieldMapping,
		},
	})
	r.Register("class.scheduled", Schema{
		Required: map[string]FieldType{
			"class_id":         FieldString,
			"class_name":       FieldString,
			"trainer_id":       FieldString,
			"trainer_name":     FieldString,
			"scheduled_time":   FieldTimestamp,
			"duration_minutes": FieldNumber,
			"location":         FieldString,
			"capacity":         FieldNumber,
		},
	})
	r.Register("class.cancelled", Schema{
		Required: map[string]FieldType{
			"class_id":            FieldString,
			"class_name":          FieldString,
			"scheduled_time":      FieldTimestamp,
			"cancellation_reason": FieldString,
		},
		Optional: map[string]FieldType{
			"affected_users": FieldList,
		},
	})

	return r
}
