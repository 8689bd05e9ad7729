// emberdb-bench - Benchmark tool for EmberDB
//
// Usage:
//
//	emberdb-bench [flags]
//
// Flags:
//
//	-addr string     Server address (default "localhost:6379")
//	-clients int     Number of parallel clients (default 50)
//	-requests int    Total number of requests (default 100000)
//	-test string     Test type: set,get,mixed,incr,lpush (default "mixed")
package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	addr := flag.String("addr", "localhost:6379", "Server address")
	clients := flag.Int("clients", 50, "Number of parallel clients")
	requests := flag.Int("requests", 100000, "Total number of requests")
	testType := flag.String("test", "mixed", "Test type: set,get,mixed,incr,lpush")
	flag.Parse()

	fmt.Println("====== EmberDB Benchmark ======")
	fmt.Printf("Server: %s\n", *addr)
	fmt.Printf("Clients: %d\n", *clients)
	fmt.Printf("Requests: %d\n", *requests)
	fmt.Printf("Test: %s\n", *testType)
	fmt.Println()

	var completed int64
	var errors int64
	reqPerClient := *requests / *clients
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()

			rdb := redis.NewClient(&redis.Options{
				Addr:             *addr,
				Protocol:         2,
				DisableIndentity: true,
				PoolSize:         1,
			})
			defer rdb.Close()

			for j := 0; j < reqPerClient; j++ {
				key := fmt.Sprintf("key:%d:%d", clientID, j)
				value := fmt.Sprintf("value:%d:%d", clientID, j)

				var err error
				switch *testType {
				case "set":
					err = rdb.Set(ctx, key, value, 0).Err()
				case "get":
					err = ignoreNil(rdb.Get(ctx, key).Err())
				case "mixed":
					if j%2 == 0 {
						err = rdb.Set(ctx, key, value, 0).Err()
					} else {
						err = ignoreNil(rdb.Get(ctx, key).Err())
					}
				case "incr":
					err = rdb.Incr(ctx, fmt.Sprintf("counter:%d", clientID)).Err()
				case "lpush":
					err = rdb.LPush(ctx, fmt.Sprintf("list:%d", clientID), value).Err()
				default:
					err = rdb.Ping(ctx).Err()
				}

				if err != nil {
					atomic.AddInt64(&errors, 1)
					continue
				}
				atomic.AddInt64(&completed, 1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("====== Results ======")
	fmt.Printf("Total time: %v\n", elapsed)
	fmt.Printf("Completed: %d\n", completed)
	fmt.Printf("Errors: %d\n", errors)
	fmt.Printf("Requests/sec: %.2f\n", float64(completed)/elapsed.Seconds())
	fmt.Printf("Avg latency: %.3f ms\n", float64(elapsed.Milliseconds())/float64(completed)*float64(*clients))
}

func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}
