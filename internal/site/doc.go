// Package site describes what a run deploys: the hosting resource and the
// pipeline that builds and publishes content into it.
//
// Both halves are plain values. A [ResourceSpec] is handed to an
// infrastructure engine, which declares the resource graph as a pure function
// of it. A [Pipeline] is an ordered chain of [Step] values, each run in its
// own disposable container and seeded only with explicitly declared inputs,
// the last of which may publish to the converged resource.
//
// Defaults reproduce the stock deployment: a website bucket named
// "my-website-bucket" serving index.html, a Node build step and an AWS CLI
// publish step. An optional YAML manifest overrides any part of it.
//
// Example manifest:
//
//	resource:
//	  name: docs-bucket
//	  indexDocument: index.html
//	  tags:
//	    Environment: Prod
//	pipeline:
//	  - name: build
//	    image: node:20-alpine
//	    inputs: ["./website /src"]
//	    workdir: /src
//	    run:
//	      - npm ci
//	      - npm run build
//	    artifact: /src/build
//	  - name: publish
//	    image: amazon/aws-cli:latest
//	    inputs: ["build:/src/build /website"]
//	    credentials: true
//	    publish:
//	      source: /website
//	      acl: public-read
//
// Example usage:
//
//	m, err := site.Load("siteship.yaml", "./website")
//	if err != nil {
//	    return err
//	}
//	if r := site.Validate(m); !r.Valid {
//	    return r.Err()
//	}
package site
