//go:build unix

package tcpool

import "github.com/cloudfly/tcpool/pagecache"

func defaultPager() pagecache.Pager {
	return pagecache.NewUnixPager()
}
