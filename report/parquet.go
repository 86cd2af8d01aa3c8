package report

import (
	"fmt"
	"math"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// sampleRow is the Parquet schema for one canonical sample, grounded on
// the teacher's canonicalParquetRow: nullable numeric fields are exported
// as NaN rather than a second validity column, since the decoder already
// marks invalid readings at the field level before a Sample is built.
type sampleRow struct {
	Timestamp string  `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DistanceM float64 `parquet:"name=distance_m, type=DOUBLE"`
	SpeedMPS  float64 `parquet:"name=speed_mps, type=DOUBLE"`
	HeartRate float64 `parquet:"name=heart_rate, type=DOUBLE"`
	AltitudeM float64 `parquet:"name=altitude_m, type=DOUBLE"`
	PowerW    float64 `parquet:"name=power_w, type=DOUBLE"`
}

// WriteCanonicalSamplesParquet writes samples to a local Parquet file with
// snappy compression, grounded on the teacher's marshalCanonicalParquet /
// pipeline.writeCanonicalParquet pairing (local.NewLocalFileWriter +
// writer.NewParquetWriter).
func WriteCanonicalSamplesParquet(path string, samples []Sample) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("report: opening %s: %w", path, err)
	}
	pw, err := writer.NewParquetWriter(fw, new(sampleRow), 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("report: creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, s := range samples {
		row := sampleRow{
			Timestamp: s.Timestamp,
			DistanceM: orNaN(s.Distance),
			SpeedMPS:  orNaN(s.Speed),
			HeartRate: orNaNInt(s.HeartRate),
			AltitudeM: orNaN(s.Altitude),
			PowerW:    orNaNInt(s.Power),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("report: writing parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("report: finalizing parquet file: %w", err)
	}
	return fw.Close()
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func orNaNInt(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}
