// Package main contains a small backfill tool that finds graded user_responses
// with no corresponding task_attempts row and recreates the attempt from the
// stored per-question scores.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// attemptScore mirrors the grading engine: percentage over the task's
// question count, score truncated toward zero within max_score.
func attemptScore(correct, totalQuestions, maxScore int) (float64, int) {
	percentage := float64(correct) / float64(totalQuestions) * 100
	score := int(percentage / 100 * float64(maxScore))
	return percentage, score
}

func main() {
	var dbURL string
	var batchSize int
	var dryRun bool
	var maxRows int

	flag.StringVar(&dbURL, "db", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	flag.IntVar(&batchSize, "batch", 500, "Number of user/task pairs to process per batch")
	flag.BoolVar(&dryRun, "dry-run", true, "If true, don't write attempts; just print what would be written")
	flag.IntVar(&maxRows, "max", 0, "Maximum number of pairs to process (0 = no limit)")
	flag.Parse()

	if dbURL == "" {
		log.Fatal("database URL must be provided via -db or DATABASE_URL")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalf("failed to close db: %v", cerr)
		}
	}()

	ctx := context.Background()

	processed := 0
	for {
		if maxRows > 0 && processed >= maxRows {
			log.Printf("reached max %d rows, stopping", maxRows)
			break
		}

		// user/task pairs with responses but no attempt row; total is the
		// task's question count, not the response count, so partially
		// answered tasks score the same as in the grading engine
		rows, err := db.QueryContext(ctx, `
            SELECT ur.user_id, q.task_id, t.max_score,
                   (SELECT COUNT(*) FROM questions qq WHERE qq.task_id = q.task_id) AS total_questions,
                   COUNT(*) FILTER (WHERE ur.is_correct) AS correct
            FROM user_responses ur
            JOIN questions q ON q.id = ur.question_id
            JOIN tasks t ON t.id = q.task_id
            LEFT JOIN task_attempts ta ON ta.user_id = ur.user_id AND ta.task_id = q.task_id
            WHERE ta.id IS NULL
            GROUP BY ur.user_id, q.task_id, t.max_score
            ORDER BY ur.user_id, q.task_id
            LIMIT $1
        `, batchSize)
		if err != nil {
			log.Fatalf("query failed: %v", err)
		}

		type pair struct {
			userID   int
			taskID   int
			maxScore int
			totalQuestions int
			correct  int
		}
		var pairs []pair
		for rows.Next() {
			var p pair
			if err := rows.Scan(&p.userID, &p.taskID, &p.maxScore, &p.totalQuestions, &p.correct); err != nil {
				log.Fatalf("scan failed: %v", err)
			}
			pairs = append(pairs, p)
		}
		if err := rows.Err(); err != nil {
			log.Fatalf("rows iteration failed: %v", err)
		}
		if cerr := rows.Close(); cerr != nil {
			log.Fatalf("failed to close rows: %v", cerr)
		}

		if len(pairs) == 0 {
			break
		}

		for _, p := range pairs {
			if maxRows > 0 && processed >= maxRows {
				break
			}

			if p.totalQuestions == 0 {
				log.Printf("skipping user=%d task=%d: task has no questions", p.userID, p.taskID)
				processed++
				continue
			}

			percentage, score := attemptScore(p.correct, p.totalQuestions, p.maxScore)

			if dryRun {
				log.Printf("would create attempt user=%d task=%d score=%d/%d percentage=%.1f",
					p.userID, p.taskID, score, p.maxScore, percentage)
				processed++
				continue
			}

			_, err := db.ExecContext(ctx, `
                INSERT INTO task_attempts (user_id, task_id, score, max_score, percentage, is_completed, started_at)
                VALUES ($1, $2, $3, $4, $5, false, NOW())
                ON CONFLICT (user_id, task_id) DO NOTHING
            `, p.userID, p.taskID, score, p.maxScore, percentage)
			if err != nil {
				log.Fatalf("insert failed for user=%d task=%d: %v", p.userID, p.taskID, err)
			}
			log.Printf("created attempt user=%d task=%d score=%d/%d", p.userID, p.taskID, score, p.maxScore)
			processed++
		}

		if dryRun {
			// dry-run never writes, so the same pairs would be selected again
			break
		}
	}

	log.Printf("done, processed %d user/task pairs (dry-run=%v)", processed, dryRun)
}
