package dropbox

import (
	"context"
	"fmt"
)

const pathSpaceUsage = "/2/users/get_space_usage"

// SpaceUsage returns the account's used and allocated bytes. Team
// allocations report the team-wide allocation.
func (c *Client) SpaceUsage(ctx context.Context) (*SpaceUsage, error) {
	var res spaceUsageResponse
	if err := c.rpc(ctx, pathSpaceUsage, nil, &res); err != nil {
		return nil, fmt.Errorf("fetching space usage: %w", err)
	}

	return &SpaceUsage{Used: res.Used, Allocated: res.Allocation.Allocated}, nil
}
