package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRoundID() string {
	return fmt.Sprintf("round_%s_%s",
		time.Now().Format("20060102"),
		uuid.NewString())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%s",
		time.Now().Format("20060102"),
		uuid.NewString())
}

func StarsToUnits(stars int64) float64 {
	return float64(stars * StarUnits)
}

func FormatStars(units float64) string {
	return fmt.Sprintf("%.2f Stars", units/StarUnits)
}
