package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/mapping"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

func (o outcome) String() string {
	switch o {
	case outcomeCreated:
		return "created"
	case outcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// recordError is a failure scoped to one record
type recordError struct {
	code  string
	field string
	msg   string
}

func (e *recordError) Error() string {
	return e.msg
}

// upsertAll maps and validates every row, then writes the valid ones in
// source order. A failing record never aborts the batch.
func (e *Engine) upsertAll(ctx context.Context, r *run, rows []map[string]any) {
	out := r.tpl.Process(rows)
	max := e.cfg.MaxReportedErrors

	for _, inv := range out.Invalid {
		idx := inv.Index
		r.imp.ErrorCount++
		for _, f := range inv.Errors {
			r.addError(max, gormModels.ImportError{RecordIndex: &idx, Field: f.Field, Code: constants.ErrCodeRecordInvalid, Message: f.Message})
		}
		e.countFailure(constants.ErrCodeRecordInvalid)
	}

	for i, row := range out.Valid {
		idx := row.Index
		for _, w := range row.Warnings {
			r.addWarning(max, gormModels.ImportError{RecordIndex: &idx, Field: w.Field, Code: constants.ErrCodeRecordInvalid, Message: w.Message})
		}

		res, err := e.upsertGuarded(ctx, r, row.Record)
		if err != nil {
			var re *recordError
			code, field := constants.ErrCodeCatalogWrite, ""
			if errors.As(err, &re) {
				code, field = re.code, re.field
			}
			r.imp.ErrorCount++
			r.addError(max, gormModels.ImportError{RecordIndex: &idx, Field: field, Code: code, Message: err.Error()})
			e.countFailure(code)
		} else {
			r.imp.ProcessedCount++
			switch res {
			case outcomeCreated:
				r.imp.CreatedCount++
			case outcomeUpdated:
				r.imp.UpdatedCount++
			case outcomeSkipped:
				r.imp.SkippedCount++
			}
			if e.metrics != nil {
				e.metrics.RecordsProcessedTotal.WithLabelValues(res.String()).Inc()
			}
		}

		if (i+1)%e.cfg.ProgressEvery == 0 {
			e.saveProgress(ctx, r)
		}
	}
}

func (e *Engine) countFailure(reason string) {
	if e.metrics != nil {
		e.metrics.RecordsFailedTotal.WithLabelValues(reason).Inc()
	}
}

// upsertGuarded isolates a panic in one record from the rest of the batch
func (e *Engine) upsertGuarded(ctx context.Context, r *run, rec *mapping.Record) (res outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &recordError{code: constants.ErrCodeRecordPanic, msg: fmt.Sprintf("%s: %v", constants.GetErrorMessage(constants.ErrCodeRecordPanic), p)}
		}
	}()
	return e.upsertRecord(ctx, r, rec)
}

func (e *Engine) upsertRecord(ctx context.Context, r *run, rec *mapping.Record) (outcome, error) {
	sku := rec.String("sku")
	if sku == "" {
		return outcomeSkipped, &recordError{code: constants.ErrCodeSKUMissing, field: "sku", msg: constants.GetErrorMessage(constants.ErrCodeSKUMissing)}
	}

	existing, err := e.catalog.GetProductBySKU(ctx, sku)
	if err != nil {
		return outcomeSkipped, err
	}

	var product *gormModels.Product
	result := outcomeCreated
	switch {
	case existing != nil && r.skipExisting:
		product, result = existing, outcomeSkipped
	case existing != nil:
		product, result = mergeProduct(existing, rec), outcomeUpdated
		if err := e.catalog.UpdateProduct(ctx, existing.ID, product); err != nil {
			return outcomeSkipped, err
		}
	default:
		product = mergeProduct(&gormModels.Product{SKU: sku}, rec)
		if err := e.catalog.CreateProduct(ctx, product); err != nil {
			// another run may have inserted the SKU after the lookup
			raced, findErr := e.catalog.GetProductBySKU(ctx, sku)
			if findErr != nil || raced == nil {
				return outcomeSkipped, err
			}
			product, result = mergeProduct(raced, rec), outcomeUpdated
			if err := e.catalog.UpdateProduct(ctx, raced.ID, product); err != nil {
				return outcomeSkipped, err
			}
		}
	}

	supplierSKU := rec.String("supplier_sku")
	if supplierSKU == "" {
		supplierSKU = sku
	}
	link := gormModels.ProductSupplier{SupplierSKU: supplierSKU, Cost: floatField(rec, "cost")}
	if _, _, err := e.catalog.GetOrCreateProductSupplier(ctx, product.ID, r.supplierID, link); err != nil {
		return outcomeSkipped, err
	}

	if e.inventory != nil {
		if qty, ok := intField(rec, "inventory"); ok {
			if err := e.inventory.UpsertInventory(ctx, product.ID, r.supplierID, qty); err != nil {
				return outcomeSkipped, err
			}
		}
	}
	return result, nil
}

// mergeProduct overlays the fields present in rec on a copy of base.
// Absent fields keep their stored value.
func mergeProduct(base *gormModels.Product, rec *mapping.Record) *gormModels.Product {
	p := *base

	strs := map[string]*string{
		"name":         &p.Name,
		"description":  &p.Description,
		"brand":        &p.Brand,
		"manufacturer": &p.Manufacturer,
		"category":     &p.Category,
		"upc":          &p.UPC,
		"mpn":          &p.MPN,
		"image_url":    &p.ImageURL,
		"status":       &p.Status,
	}
	for name, dst := range strs {
		if v := rec.String(name); v != "" {
			*dst = v
		}
	}

	nums := map[string]**float64{
		"price":  &p.Price,
		"cost":   &p.Cost,
		"msrp":   &p.MSRP,
		"weight": &p.Weight,
	}
	for name, dst := range nums {
		if v := floatField(rec, name); v != nil {
			*dst = v
		}
	}

	if len(rec.Attributes) > 0 {
		attrs := gormModels.JSONB{}
		for k, v := range base.Attributes {
			attrs[k] = v
		}
		for k, v := range rec.Attributes {
			if !mapping.IsEmpty(v) {
				attrs[k] = v
			}
		}
		p.Attributes = attrs
	}
	return &p
}

func floatField(rec *mapping.Record, name string) *float64 {
	v, ok := rec.Get(name)
	if !ok || mapping.IsEmpty(v) {
		return nil
	}
	f, err := mapping.Coerce(v, mapping.TypeFloat)
	if err != nil {
		return nil
	}
	out := f.(float64)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return nil
	}
	return &out
}

func intField(rec *mapping.Record, name string) (int, bool) {
	v, ok := rec.Get(name)
	if !ok || mapping.IsEmpty(v) {
		return 0, false
	}
	n, err := mapping.Coerce(v, mapping.TypeFloat)
	if err != nil {
		return 0, false
	}
	f := math.Round(n.(float64))
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
