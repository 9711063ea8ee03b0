// Package pricefit trains and serves a single-feature linear regression of
// house price on living area (sqft_living).
//
// A run reads (x, y) points from a source, min-max normalizes both columns,
// splits the shuffled data into equal train and test halves, and fits
// y = w*x + b by mini-batch gradient descent on mean squared error. The
// fitted model is only meaningful together with the scaling parameters of
// the run that produced it, so the two always travel as one bundle: in
// memory, on disk and over HTTP.
//
// # Installation
//
//	go get github.com/YuminosukeSato/pricefit
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/pricefit/dataset"
//	    "github.com/YuminosukeSato/pricefit/linear"
//	    "github.com/YuminosukeSato/pricefit/pipeline"
//	    "github.com/YuminosukeSato/pricefit/store"
//	)
//
//	func main() {
//	    src := dataset.NewCSVSource("kc_house_data.csv")
//
//	    sess, err := pipeline.NewSession(src, store.NewMemoryStore(), pipeline.Options{
//	        Train: linear.DefaultTrainConfig(),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    rep, err := sess.Train(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("price = %.2f * sqft + %.2f\n", rep.Slope, rep.Intercept)
//
//	    price, err := sess.Predict(2000)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Predicted price:", price)
//	}
//
// # Packages
//
//   - preprocessing: Min-max scaling of the feature and label columns
//   - model_selection: Shuffle, even-length truncation and the 50/50 split
//   - linear: The one-weight model and its mini-batch SGD trainer
//   - metrics: MSE, RMSE, MAE and R²
//   - predict: Model plus scaling bundle and raw-unit prediction
//   - store: Keyed artifact stores (memory, file, SQLite) with an LRU cache
//   - dataset: Point sources (static, CSV, HTTP)
//   - pipeline: The session owning the current model and status strings
//   - report: Loss and scatter charts
//   - server: HTTP API with live epoch progress over WebSocket
//   - config: YAML configuration
//   - core/model: Training state and the persisted artifact record
//   - core/parallel: Parallel element-wise processing
//   - pkg/errors, pkg/log: Error types and structured logging
//
// # Command Line
//
//	pricefit serve   -config config.yaml
//	pricefit train   -csv kc_house_data.csv
//	pricefit predict -x 2000
package pricefit
