// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/carlot/core/access"
	"github.com/relabs-tech/carlot/core/client"
	"github.com/relabs-tech/carlot/core/store"
)

// catalogue is the sample catalogue, brand name to model names
var catalogue = []struct {
	brand  string
	models []string
}{
	{"Volkswagen", []string{"Golf", "Polo", "Passat", "Tiguan", "ID.3"}},
	{"BMW", []string{"1er", "3er", "5er", "X1", "X3"}},
	{"Mercedes-Benz", []string{"A-Klasse", "C-Klasse", "E-Klasse", "GLC"}},
	{"Audi", []string{"A3", "A4", "A6", "Q5"}},
	{"Opel", []string{"Corsa", "Astra", "Mokka"}},
	{"Skoda", []string{"Fabia", "Octavia", "Superb", "Kodiaq"}},
	{"Toyota", []string{"Yaris", "Corolla", "RAV4"}},
	{"Tesla", []string{"Model 3", "Model Y"}},
}

// sampleListings are created for the first model of a brand, in catalogue order
var sampleListings = []map[string]interface{}{
	{"year": 2019, "price": 17900, "mileage": 54000, "fuel_type": "petrol", "transmission": "manual", "body_type": "hatchback", "color": "white", "featured": true},
	{"year": 2017, "price": 21500, "mileage": 88000, "fuel_type": "diesel", "transmission": "automatic", "body_type": "hatchback", "color": "black"},
	{"year": 2021, "price": 29900, "mileage": 23000, "fuel_type": "hybrid", "transmission": "automatic", "body_type": "hatchback", "color": "silver"},
	{"year": 2018, "price": 19800, "mileage": 61000, "fuel_type": "diesel", "transmission": "manual", "body_type": "sedan", "color": "blue"},
	{"year": 2015, "price": 7400, "mileage": 132000, "fuel_type": "petrol", "transmission": "manual", "body_type": "hatchback", "color": "red"},
	{"year": 2020, "price": 18600, "mileage": 41000, "fuel_type": "petrol", "transmission": "manual", "body_type": "wagon", "color": "grey"},
	{"year": 2016, "price": 11900, "mileage": 97000, "fuel_type": "hybrid", "transmission": "automatic", "body_type": "hatchback", "color": "white"},
	{"year": 2022, "price": 38900, "mileage": 18000, "fuel_type": "electric", "transmission": "automatic", "body_type": "sedan", "color": "black", "featured": true},
}

type seedResult struct {
	Brands   int
	Models   int
	Listings int
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the catalogue with sample brands, models and listings",
	Long: `Seed creates missing sample brands and models. With --listings, it also creates
sample listings if there are no listings yet.

Without --url, seed works directly on the configured store. With --url, it seeds a
running server and logs in with --username and --password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withListings, _ := cmd.Flags().GetBool("listings")
		serverURL, _ := cmd.Flags().GetString("url")

		var cl client.Client
		if serverURL != "" {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			var err error
			if cl, err = remoteClient(serverURL, username, password); err != nil {
				return err
			}
		} else {
			s, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()
			cl = client.NewWithRouter(s.router).WithContext(cmd.Context()).WithAdminAuthorization()
		}

		result, err := seed(cl, withListings)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d brands, %d models and %d listings\n", result.Brands, result.Models, result.Listings)
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("listings", false, "also create sample listings")
	seedCmd.Flags().String("url", "", "the URL of a running server")
	seedCmd.Flags().String("username", "", "admin username for --url")
	seedCmd.Flags().String("password", "", "admin password for --url")
}

// remoteClient logs in at the server and returns a client with the access token
func remoteClient(serverURL, username, password string) (client.Client, error) {
	cl := client.NewWithURL(serverURL)
	var pair access.TokenPair
	status, err := cl.RawPost("/api/auth/login", map[string]string{"username": username, "password": password}, &pair)
	if err != nil {
		if status == http.StatusUnauthorized {
			return cl, fmt.Errorf("login as %s failed", username)
		}
		return cl, err
	}
	return cl.WithToken(pair.AccessToken), nil
}

// seed creates the sample catalogue with cl, skipping brands and models which exist already
func seed(cl client.Client, withListings bool) (seedResult, error) {
	var result seedResult
	var brands []store.Brand
	if _, err := cl.RawGet("/api/brands", &brands); err != nil {
		return result, err
	}
	brandIDs := map[string]string{}
	for _, b := range brands {
		brandIDs[b.Slug] = b.ID.String()
	}

	firstModels := make([]store.Model, 0, len(catalogue))
	for _, entry := range catalogue {
		brandID, ok := brandIDs[store.Slugify(entry.brand)]
		if !ok {
			var brand store.Brand
			if _, err := cl.RawPost("/api/admin/brands", map[string]string{"name": entry.brand}, &brand); err != nil {
				return result, fmt.Errorf("cannot create brand %s: %w", entry.brand, err)
			}
			brandID = brand.ID.String()
			result.Brands++
		}

		var models []store.Model
		if _, err := cl.RawGet("/api/models?"+url.Values{"brand_id": {brandID}}.Encode(), &models); err != nil {
			return result, err
		}
		existing := map[string]store.Model{}
		for _, m := range models {
			existing[m.Slug] = m
		}
		for i, name := range entry.models {
			model, ok := existing[store.Slugify(name)]
			if !ok {
				if _, err := cl.RawPost("/api/admin/models", map[string]string{"brand_id": brandID, "name": name}, &model); err != nil {
					return result, fmt.Errorf("cannot create model %s %s: %w", entry.brand, name, err)
				}
				result.Models++
			}
			if i == 0 {
				firstModels = append(firstModels, model)
			}
		}
	}

	if !withListings {
		return result, nil
	}
	var listings []interface{}
	_, header, err := cl.RawGetWithHeader("/api/listings?limit=1", nil, &listings)
	if err != nil {
		return result, err
	}
	if header.Get("Pagination-Total-Count") != "0" {
		return result, nil
	}
	for i, sample := range sampleListings {
		model := firstModels[i%len(firstModels)]
		listing := map[string]interface{}{
			"title":       fmt.Sprintf("%s %s", catalogue[i%len(catalogue)].brand, model.Name),
			"brand_id":    model.BrandID,
			"model_id":    model.ID,
			"description": "Sample listing",
		}
		for k, v := range sample {
			listing[k] = v
		}
		if _, err := cl.RawPost("/api/admin/listings", listing, nil); err != nil {
			return result, fmt.Errorf("cannot create listing: %w", err)
		}
		result.Listings++
	}
	return result, nil
}
