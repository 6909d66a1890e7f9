// Package export writes appointment extracts to S3 as CSV for the clinic's
// reporting tools.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PgxPool is the subset of pgxpool.Pool the exporter uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Exporter dumps appointments between two dates into an S3 bucket.
type Exporter struct {
	pool   PgxPool
	client s3PutAPI
	bucket string
	logger *logging.Logger
	now    func() time.Time
}

// NewExporter wires the exporter.
func NewExporter(pool PgxPool, client s3PutAPI, bucket string, logger *logging.Logger) *Exporter {
	if pool == nil {
		panic("export: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Exporter{
		pool:   pool,
		client: client,
		bucket: bucket,
		logger: logger.Component("export"),
		now:    time.Now,
	}
}

var csvHeader = []string{"id", "patient_name", "doctor_name", "date", "start_time", "end_time", "symptoms", "status"}

// Appointments writes a CSV of appointments in [fromDate, toDate] to S3 and
// returns the object key.
func (e *Exporter) Appointments(ctx context.Context, fromDate, toDate string) (string, error) {
	if e.client == nil || e.bucket == "" {
		return "", fmt.Errorf("export: s3 destination not configured")
	}

	data, count, err := e.buildCSV(ctx, fromDate, toDate)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("appointments/%s_%s_%d.csv", fromDate, toDate, e.now().Unix())
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("export: upload failed: %w", err)
	}

	e.logger.Info("appointments exported", "key", key, "rows", count, "from", fromDate, "to", toDate)
	return key, nil
}

func (e *Exporter) buildCSV(ctx context.Context, fromDate, toDate string) ([]byte, int, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT a.id, p.name, d.name,
		       to_char(a.appointment_date, 'YYYY-MM-DD'),
		       to_char(a.start_time, 'HH24:MI'),
		       to_char(a.end_time, 'HH24:MI'),
		       COALESCE(a.symptoms, ''), a.status
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.appointment_date BETWEEN $1 AND $2
		ORDER BY a.appointment_date, a.start_time
	`, fromDate, toDate)
	if err != nil {
		return nil, 0, fmt.Errorf("export: query appointments: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, 0, fmt.Errorf("export: write header: %w", err)
	}

	count := 0
	for rows.Next() {
		var id int64
		var patient, doctor, date, start, end, symptoms, status string
		if err := rows.Scan(&id, &patient, &doctor, &date, &start, &end, &symptoms, &status); err != nil {
			return nil, 0, fmt.Errorf("export: scan appointment: %w", err)
		}
		record := []string{strconv.FormatInt(id, 10), patient, doctor, date, start, end, symptoms, status}
		if err := w.Write(record); err != nil {
			return nil, 0, fmt.Errorf("export: write row: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("export: flush csv: %w", err)
	}
	return buf.Bytes(), count, nil
}
