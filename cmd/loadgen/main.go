// Command loadgen fires concurrent requests at a running candy-depot server
// and reports how the shared single-connection store held up.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL       = "http://localhost:4567"
	totalRequests = 200
	writeEvery    = 10 // every Nth request is a stock update
)

var readPaths = []string{
	"/items",
	"/low_stock",
	"/overstock",
	"/out_of_stock",
	"/distributors",
	"/restock/cheapest?item_id=5&quantity=10",
	"/inventory/item/5",
}

func main() {
	client := &http.Client{Timeout: 5 * time.Second}

	// Start from the seed fixture
	resp, err := client.Get(baseURL + "/reset")
	if err != nil {
		log.Fatalf("failed to reset database: %v", err)
	}
	drain(resp)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			var resp *http.Response
			var err error
			if n%writeEvery == 0 {
				body := fmt.Sprintf(`{"stock": %d}`, 10+n%40)
				req, _ := http.NewRequest(http.MethodPut, baseURL+"/inventory/4", bytes.NewBufferString(body))
				req.Header.Set("Content-Type", "application/json")
				resp, err = client.Do(req)
			} else {
				resp, err = client.Get(baseURL + readPaths[n%len(readPaths)])
			}

			if err != nil {
				failCount.Add(1)
				return
			}
			drain(resp)
			if resp.StatusCode == http.StatusOK {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if fail == 0 {
		fmt.Println("PASS: every request completed against the shared connection")
	} else {
		fmt.Printf("FAIL: %d requests did not complete cleanly\n", fail)
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
