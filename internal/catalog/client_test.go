package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-api/internal/config"
	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client := NewClient(&config.CatalogConfig{
		BaseURL: server.URL,
		Timeout: timeout,
	}, logger)
	return client, server
}

func sampleProduct(id, categoryID int) Product {
	return Product{
		ID:          id,
		Title:       fmt.Sprintf("Product %d", id),
		Price:       10 * id,
		Description: "test product",
		Category:    Category{ID: categoryID, Name: "Clothes"},
		Images:      []string{"https://example.com/img.jpg"},
	}
}

func TestClient_Get_OK(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sampleProduct(7, 1))
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	product, err := client.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, product.ID)
	assert.Equal(t, "Product 7", product.Title)
	assert.Equal(t, 1, product.Category.ID)
}

func TestClient_Get_NotFound(t *testing.T) {
	// Any non-2xx on a get-by-id means the product is not retrievable
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest, http.StatusInternalServerError} {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/products/99", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			client, _ := newTestClient(t, mux, 2*time.Second)

			_, err := client.Get(context.Background(), 99)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
		})
	}
}

func TestClient_List_RemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	_, err := client.List(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRemoteError, apperrors.CodeOf(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestClient_List_WindowParams(t *testing.T) {
	var gotOffset, gotLimit string
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		gotOffset = r.URL.Query().Get("offset")
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode([]Product{sampleProduct(1, 1)})
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	products, err := client.List(context.Background(), 5, 20)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "5", gotOffset)
	assert.Equal(t, "20", gotLimit)
}

func TestClient_Timeout_TransportFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products/1", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	client, _ := newTestClient(t, mux, 50*time.Millisecond)

	_, err := client.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTransportFailure, apperrors.CodeOf(err))
}

func TestClient_ConnectionRefused_TransportFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := NewClient(&config.CatalogConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	}, logger)

	_, err := client.List(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTransportFailure, apperrors.CodeOf(err))
}

func TestClient_Create_Created(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var payload ProductPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "New Product", payload.Title)
		assert.Equal(t, 3, payload.CategoryID)

		created := sampleProduct(42, payload.CategoryID)
		created.Title = payload.Title
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	product, err := client.Create(context.Background(), &ProductPayload{
		Title:       "New Product",
		Price:       25,
		Description: "desc",
		CategoryID:  3,
		Images:      []string{"https://example.com/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, product.ID)
}

func TestClient_Delete_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products/8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	err := client.Delete(context.Background(), 8)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestRelated_FromCategory(t *testing.T) {
	viewed := sampleProduct(1, 5)

	mux := http.NewServeMux()
	mux.HandleFunc("/categories/5/products", func(w http.ResponseWriter, r *http.Request) {
		// Six candidates including the viewed product itself
		candidates := []Product{
			sampleProduct(1, 5), sampleProduct(2, 5), sampleProduct(3, 5),
			sampleProduct(4, 5), sampleProduct(5, 5), sampleProduct(6, 5),
		}
		json.NewEncoder(w).Encode(candidates)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	related := client.Related(context.Background(), &viewed)
	require.Len(t, related, 4)
	for _, p := range related {
		assert.NotEqual(t, viewed.ID, p.ID)
	}
	assert.Equal(t, []int{2, 3, 4, 5}, []int{related[0].ID, related[1].ID, related[2].ID, related[3].ID})
}

func TestRelated_CategoryTimeoutFallsBackToGenericWindow(t *testing.T) {
	viewed := sampleProduct(3, 5)

	mux := http.NewServeMux()
	mux.HandleFunc("/categories/5/products", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond) // outlives the client timeout
	})
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		window := make([]Product, 0, 20)
		for i := 1; i <= 20; i++ {
			window = append(window, sampleProduct(i, 9))
		}
		json.NewEncoder(w).Encode(window)
	})
	client, _ := newTestClient(t, mux, 100*time.Millisecond)

	related := client.Related(context.Background(), &viewed)
	require.Len(t, related, 4)
	for _, p := range related {
		assert.NotEqual(t, viewed.ID, p.ID)
	}
}

func TestRelated_CategoryRemoteErrorYieldsEmpty(t *testing.T) {
	viewed := sampleProduct(3, 5)

	mux := http.NewServeMux()
	mux.HandleFunc("/categories/5/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	related := client.Related(context.Background(), &viewed)
	assert.Empty(t, related)
}

func TestRelated_NoCategoryUsesGenericWindow(t *testing.T) {
	viewed := sampleProduct(2, 0)
	viewed.Category = Category{}

	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		window := []Product{sampleProduct(1, 1), sampleProduct(2, 1), sampleProduct(3, 1)}
		json.NewEncoder(w).Encode(window)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	related := client.Related(context.Background(), &viewed)
	require.Len(t, related, 2)
	assert.Equal(t, 1, related[0].ID)
	assert.Equal(t, 3, related[1].ID)
}

func TestRelated_GenericWindowFailureYieldsEmpty(t *testing.T) {
	viewed := sampleProduct(2, 0)

	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client, _ := newTestClient(t, mux, 2*time.Second)

	related := client.Related(context.Background(), &viewed)
	assert.Empty(t, related)
}
