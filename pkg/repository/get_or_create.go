package repository

import (
	"context"
	"errors"
	"fmt"
)

// GetOrCreate 幂等的获取或创建：
//  1. find 命中直接返回
//  2. 未命中（ErrNotFound）时调用 create
//  3. create 失败（通常是并发创建导致的唯一键冲突）时重新 find，命中则返回该记录
//
// 只有重读仍然找不到时才返回 create 的错误，竞争中的调用方最终得到同一条记录。
func GetOrCreate[T any](ctx context.Context, find func(context.Context) (*T, error), create func(context.Context) (*T, error)) (*T, error) {
	found, err := find(ctx)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created, createErr := create(ctx)
	if createErr == nil {
		return created, nil
	}

	found, err = find(ctx)
	if err == nil {
		return found, nil
	}
	return nil, fmt.Errorf("创建记录失败: %w", createErr)
}
