// Package dishdex embeds the dish-image retrieval engine in a Go program.
//
// A Client loads one parquet snapshot per embedding space from a local directory
// or a MinIO bucket, L2-normalizes it and answers nearest-neighbour queries with
// a match gate, grouping by dish and an optional metadata record.
//
//	client, _ := dishdex.New(ctx,
//	    dishdex.WithDir("./data"),
//	    dishdex.WithExtractor(myExtractor),
//	    dishdex.WithMetadataFile("./data/metadata.json"),
//	)
//	res, _ := client.SearchImage(ctx, jpeg, dishdex.Params{K: 10})
//	if res.Matched {
//	    fmt.Println(res.Dish.Name, res.Best.ID)
//	}
//
// Vectors computed elsewhere can be ranked directly:
//
//	res, _ := client.SearchVector(ctx, "vit", vec, dishdex.Params{Metric: dishdex.Cosine, Threshold: dishdex.Threshold(0.8)})
//
// Self-retrieval quality of a space is measured as mAP@k:
//
//	rep, _ := client.Evaluate(ctx, "cnn", []int{1, 5, 10}, []int{5})
package dishdex
